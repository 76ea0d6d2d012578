package api

// ResponseStatus is the envelope status reported by most endpoints.
type ResponseStatus string

const (
	ResponseOK    ResponseStatus = "ok"
	ResponseError ResponseStatus = "error"
)

func parseResponseStatus(s *string) *ResponseStatus {
	if s == nil {
		return nil
	}
	var st ResponseStatus
	switch ResponseStatus(*s) {
	case ResponseOK:
		st = ResponseOK
	case ResponseError:
		st = ResponseError
	default:
		return nil
	}
	return &st
}

// Envelope carries the fields every response shares. On error OK is false,
// Message is set and License and Data are usually nil.
type Envelope struct {
	// Status is nil for prices.php, which does not report one.
	Status  *ResponseStatus
	Message *string
	License *string
	Data    *string
	OK      bool
}

// StationListResult is the response to a StationListRequest. Stations is nil
// when the call failed and empty when nothing was found.
type StationListResult struct {
	Envelope
	Stations []Station
}

// StationDetailResult is the response to a StationDetailRequest.
type StationDetailResult struct {
	Envelope
	Station *Station
}

// PricesResult is the response to a PricesRequest, keyed by station id.
type PricesResult struct {
	Envelope
	Prices map[string]GasPrices
}

// GasPrice returns the prices reported for the given station id.
func (r *PricesResult) GasPrice(id string) (GasPrices, bool) {
	p, ok := r.Prices[id]
	return p, ok
}

// CorrectionResult is the response to a CorrectionRequest.
type CorrectionResult struct {
	Envelope
}
