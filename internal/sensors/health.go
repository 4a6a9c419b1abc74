package sensors

import "github.com/secretengineer/GreenOS/internal/models"

// healthRecord tracks validity and error statistics for one logical
// sensor unit. Owned exclusively by the Validator; mutated only after
// each validation attempt.
type healthRecord struct {
	valid             bool
	lastValidTickMs   int64
	lastValidValue    float64
	consecutiveErrors int
	totalReads        uint64
	totalErrors       uint64
}

func newHealthRecord() *healthRecord {
	return &healthRecord{valid: true}
}

// accept records a successful validation. consecutiveErrors always
// resets to zero on an accepted reading.
func (h *healthRecord) accept(nowMs int64, value float64) {
	h.lastValidTickMs = nowMs
	h.lastValidValue = value
	h.consecutiveErrors = 0
}

// reject records a failed validation. Validity drops exactly when the
// consecutive-error count exceeds maxErrors; it never recovers
// implicitly (see Validator.ResetHealth).
func (h *healthRecord) reject(maxErrors int) {
	h.consecutiveErrors++
	h.totalErrors++
	if h.consecutiveErrors > maxErrors {
		h.valid = false
	}
}

func (h *healthRecord) errorRatePct() float64 {
	if h.totalReads == 0 {
		return 0
	}
	return float64(h.totalErrors) / float64(h.totalReads) * 100.0
}

func (h *healthRecord) view() models.SensorHealth {
	return models.SensorHealth{
		Valid:             h.valid,
		LastValidTickMs:   h.lastValidTickMs,
		ConsecutiveErrors: h.consecutiveErrors,
		TotalReads:        h.totalReads,
		TotalErrors:       h.totalErrors,
		ErrorRatePct:      h.errorRatePct(),
	}
}
