package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/rubiojr/tankerkoenig/internal/geo"
	"github.com/rubiojr/tankerkoenig/internal/pricedb"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a JSON API backed by Tankerkönig and the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.IntFlag{
				Name:  "rate-limit",
				Usage: "Requests per minute and client IP",
				Value: 20,
			},
			&cli.DurationFlag{
				Name:  "record-interval",
				Usage: "Record prices of stored stations at this interval, 0 disables it",
				Value: 6 * time.Hour,
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Log requests as JSON",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	level := appConfig(c).SlogLevel()
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := httplog.NewLogger("tankerkoenig", httplog.Options{
		JSON:            c.Bool("json-logs"),
		LogLevel:        level,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	client, err := newClient(c, logger.Logger)
	if err != nil {
		return err
	}
	storage, err := openStorage(c, logger.Logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if interval := c.Duration("record-interval"); interval > 0 {
		rec := pricedb.NewRecorder(storage, client, logger.Logger)
		go func() {
			if err := rec.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Price recorder stopped", "error", err)
			}
		}()
	}

	addr := c.String("addr")
	if addr == "" {
		addr = "127.0.0.1:" + appConfig(c).ServerPort
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(&server{client: client, storage: storage, log: logger.Logger}, logger, c.Int("rate-limit")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// stationClient is the part of api.Client the server uses.
type stationClient interface {
	StationList(ctx context.Context, r api.StationListRequest) (*api.StationListResult, error)
	StationDetail(ctx context.Context, r api.StationDetailRequest) (*api.StationDetailResult, error)
	Prices(ctx context.Context, r api.PricesRequest) (*api.PricesResult, error)
}

type server struct {
	client  stationClient
	storage *pricedb.Storage
	log     *slog.Logger
}

func newRouter(s *server, logger *httplog.Logger, perMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if perMinute > 0 {
		r.Use(httprate.LimitByIP(perMinute, time.Minute))
	}

	r.Get("/list", s.handleList)
	r.Get("/detail/{id}", s.handleDetail)
	r.Get("/prices", s.handlePrices)
	r.Get("/history/{id}", s.handleHistory)
	r.Get("/nearby", s.handleNearby)
	r.Get("/searches", s.handleSearches)
	return r
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err := errors.Join(err1, err2); err != nil {
		s.writeError(w, http.StatusBadRequest, "lat and lng are required numbers")
		return
	}

	opts := []api.ListOption{}
	if v := q.Get("rad"); v != "" {
		rad, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid rad")
			return
		}
		opts = append(opts, api.WithRadius(rad))
	}
	if v := q.Get("type"); v != "" {
		fuel, ok := api.ParseFuelType(v)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid type")
			return
		}
		opts = append(opts, api.WithFuelType(fuel))
	}
	if v := q.Get("sort"); v != "" {
		sorting, ok := api.ParseSorting(v)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid sort")
			return
		}
		opts = append(opts, api.WithSorting(sorting))
	}

	req, err := api.NewStationListRequest(lat, lng, opts...)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.client.StationList(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	out := listResponse{envelopeView: newEnvelopeView(res.Envelope)}
	if res.Stations != nil {
		out.Stations = make([]stationView, 0, len(res.Stations))
		for _, st := range res.Stations {
			out.Stations = append(out.Stations, newStationView(st))
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleDetail(w http.ResponseWriter, r *http.Request) {
	req, err := api.NewStationDetailRequest(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.client.StationDetail(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	out := detailResponse{envelopeView: newEnvelopeView(res.Envelope)}
	if res.Station != nil {
		v := newStationView(*res.Station)
		out.Station = &v
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handlePrices(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	req, err := api.NewPricesRequest(ids...)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.client.Prices(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	out := pricesResponse{envelopeView: newEnvelopeView(res.Envelope)}
	if res.Prices != nil {
		out.Prices = make(map[string]pricesView, len(res.Prices))
		for id, p := range res.Prices {
			out.Prices[id] = newPricesView(p)
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = d
	}

	id := chi.URLParam(r, "id")
	history, err := s.storage.History(r.Context(), id, time.Now().AddDate(0, 0, -days))
	if err != nil {
		s.log.Error("Error reading history", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "error reading history")
		return
	}

	out := make([]historyView, 0, len(history))
	for _, rec := range history {
		out = append(out, historyView{RecordedAt: rec.RecordedAt, pricesView: newPricesView(rec.GasPrices)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err := errors.Join(err1, err2); err != nil {
		s.writeError(w, http.StatusBadRequest, "lat and lng are required numbers")
		return
	}
	radius := api.DefaultRadius
	if v := q.Get("radius"); v != "" {
		rad, err := strconv.ParseFloat(v, 64)
		if err != nil || rad <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radius = rad
	}

	nearby, err := s.storage.NearbyStations(r.Context(), lat, lng, geo.KmToMeters(radius))
	if err != nil {
		s.log.Error("Error finding nearby stations", "error", err)
		s.writeError(w, http.StatusInternalServerError, "error finding nearby stations")
		return
	}

	out := make([]nearbyView, 0, len(nearby))
	for _, st := range nearby {
		v := nearbyView{
			ID:       st.ID,
			Name:     st.Name,
			Brand:    st.Brand,
			Street:   st.Street,
			Place:    placeName(st.Place),
			Lat:      st.Lat,
			Lng:      st.Lng,
			Distance: st.Distance / 1000,
		}
		if st.Latest != nil {
			h := historyView{RecordedAt: st.Latest.RecordedAt, pricesView: newPricesView(st.Latest.GasPrices)}
			v.Latest = &h
		}
		out = append(out, v)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSearches(w http.ResponseWriter, r *http.Request) {
	logs, err := s.storage.LocationLogs(r.Context(), 20)
	if err != nil {
		s.log.Error("Error reading location logs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "error reading searches")
		return
	}
	if logs == nil {
		logs = []pricedb.LocationLog{}
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *server) writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var rerr *api.RequestError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case api.KindValidation:
			status = http.StatusBadRequest
		case api.KindTransport, api.KindParse, api.KindDecode:
			status = http.StatusBadGateway
		}
	}
	s.log.Error("Upstream request failed", "error", err)
	s.writeError(w, status, http.StatusText(status))
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "status": "error", "message": msg})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Error writing response", "error", fmt.Errorf("error encoding JSON: %w", err))
	}
}
