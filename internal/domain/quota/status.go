package quota

// Status is the health of a single quota.
type Status string

// Status constants.
const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusExceeded Status = "exceeded"
)

// StatusFor maps a usage percentage to a status.
func StatusFor(percentage float64) Status {
	switch {
	case percentage < 50:
		return StatusHealthy
	case percentage < 80:
		return StatusWarning
	case percentage < 95:
		return StatusCritical
	default:
		return StatusExceeded
	}
}
