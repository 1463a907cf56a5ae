package testing

import (
	"context"
	"sync"

	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

// MockReportStore is a mock implementation of the prediction report store
type MockReportStore struct {
	mu      sync.Mutex
	reports map[string]*export.Report
	traces  map[string][]optimization.Record
	err     error
}

// NewMockReportStore creates a new mock report store
func NewMockReportStore() *MockReportStore {
	return &MockReportStore{
		reports: make(map[string]*export.Report),
		traces:  make(map[string][]optimization.Record),
	}
}

// SetError makes every subsequent Save fail with err
func (m *MockReportStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Save records the report and its trace
func (m *MockReportStore) Save(_ context.Context, r *export.Report, trace []optimization.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports[r.ID] = r
	m.traces[r.ID] = trace
	return nil
}

// Report returns a saved report, or nil
func (m *MockReportStore) Report(id string) *export.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id]
}

// Trace returns a saved trace
func (m *MockReportStore) Trace(id string) []optimization.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.traces[id]
}

// Count returns the number of saved reports
func (m *MockReportStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// MockUploader is a mock implementation of the artifact uploader
type MockUploader struct {
	mu    sync.Mutex
	calls map[string]export.Files
	err   error
}

// NewMockUploader creates a new mock uploader
func NewMockUploader() *MockUploader {
	return &MockUploader{calls: make(map[string]export.Files)}
}

// SetError makes every subsequent Upload fail with err
func (m *MockUploader) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Upload records the files and returns one key per job
func (m *MockUploader) Upload(_ context.Context, jobID string, files export.Files) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls[jobID] = files
	return []string{jobID + "/report"}, nil
}

// Files returns what was uploaded for jobID
func (m *MockUploader) Files(jobID string) (export.Files, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.calls[jobID]
	return f, ok
}
