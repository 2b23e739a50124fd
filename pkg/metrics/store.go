package metrics

import "time"

// StoreMetrics provides observability for store backends.
//
// It is fed by the instrumented store wrapper (pkg/store/instrumented), so
// every backend gets the same operation counters without knowing about
// Prometheus.
type StoreMetrics interface {
	// RecordOperation records one store operation.
	//
	// Parameters:
	//   - backend: Store type (e.g., "memory", "badger", "s3")
	//   - operation: Operation name (e.g., "CreateDocument", "CopyItemHere")
	//   - duration: Time taken by the backend
	//   - err: Error returned by the backend, nil on success
	RecordOperation(backend string, operation string, duration time.Duration, err error)

	// RecordBytes records document bytes read from or written to the backend.
	RecordBytes(backend string, direction string, bytes int64)
}

// NewNoopStoreMetrics returns a StoreMetrics that records nothing.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) RecordOperation(string, string, time.Duration, error) {}
func (noopStoreMetrics) RecordBytes(string, string, int64)                    {}
