package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fillstorage/pkg/filler"
	"fillstorage/pkg/models"
	"fillstorage/pkg/runner"
)

// MockFiller implements runner.StorageFiller for testing
type MockFiller struct {
	mu        sync.Mutex
	free      uint64
	files     []filler.DummyFile
	block     bool
	started   chan struct{}
	resetErr  error
	filesErr  error
	resets    int
	remaining int64
}

// NewMockFiller creates a mock filler with 1 GB free
func NewMockFiller() *MockFiller {
	return &MockFiller{
		free:    1000 * 1000 * 1000,
		started: make(chan struct{}),
	}
}

func (m *MockFiller) Dir() string {
	return "/mock/documents"
}

func (m *MockFiller) FreeBytes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.free
}

func (m *MockFiller) Fill(ctx context.Context, report filler.ProgressFunc) (int64, error) {
	close(m.started)
	if m.block {
		<-ctx.Done()
		report(m.FreeBytes())
		return m.remaining, filler.ErrCancelled
	}

	m.mu.Lock()
	m.free = uint64(filler.FreeSpaceFloor)
	m.files = []filler.DummyFile{{Index: 0, Path: "/mock/documents/dummy0", Size: 900}}
	m.mu.Unlock()
	report(m.FreeBytes())
	return m.remaining, nil
}

func (m *MockFiller) Reset() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	if m.resetErr != nil {
		return 0, m.resetErr
	}
	deleted := len(m.files)
	m.files = nil
	return deleted, nil
}

func (m *MockFiller) Files() ([]filler.DummyFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files, m.filesErr
}

// ServerTestSuite tests the HTTP handlers
type ServerTestSuite struct {
	suite.Suite
	filler *MockFiller
	runner *runner.Runner
	server *FillServer
}

// SetupTest runs before each test
func (s *ServerTestSuite) SetupTest() {
	s.filler = NewMockFiller()
	s.runner = runner.New(s.filler)
	s.server = NewFillServer("test-v1.0.0", s.runner)
	s.server.setupRoutes()
}

// TearDownTest stops any job a test left running
func (s *ServerTestSuite) TearDownTest() {
	s.runner.Shutdown()
}

func (s *ServerTestSuite) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.server.echo.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) decode(rec *httptest.ResponseRecorder, target interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), target))
}

func (s *ServerTestSuite) TestGetFreeSpace() {
	rec := s.do(http.MethodGet, "/storage/free")

	s.Equal(http.StatusOK, rec.Code)
	var free models.FreeSpace
	s.decode(rec, &free)
	s.Equal("/mock/documents", free.Dir)
	s.Equal(uint64(1000*1000*1000), free.FreeBytes)
	s.Equal("1.0 GB", free.FreeHuman)
}

func (s *ServerTestSuite) TestGetStatusIdle() {
	rec := s.do(http.MethodGet, "/storage/status")

	s.Equal(http.StatusOK, rec.Code)
	var status models.JobStatus
	s.decode(rec, &status)
	s.Equal(models.JobIdle, status.State)
}

func (s *ServerTestSuite) TestFillThenStatus() {
	rec := s.do(http.MethodPost, "/storage/fill")
	s.Equal(http.StatusAccepted, rec.Code)

	final := s.runner.Wait()
	s.Equal(models.JobCompleted, final.State)

	rec = s.do(http.MethodGet, "/storage/status")
	var status models.JobStatus
	s.decode(rec, &status)
	s.Equal(models.OperationFill, status.Operation)
	s.Equal(models.JobCompleted, status.State)
	s.Equal(uint64(filler.FreeSpaceFloor), status.FreeBytes)
}

func (s *ServerTestSuite) TestFillWhileBusy() {
	s.filler.block = true
	s.Equal(http.StatusAccepted, s.do(http.MethodPost, "/storage/fill").Code)
	<-s.filler.started

	rec := s.do(http.MethodPost, "/storage/fill")

	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "already running")
}

func (s *ServerTestSuite) TestResetCancelsFill() {
	s.filler.block = true
	s.filler.remaining = 4096
	s.Equal(http.StatusAccepted, s.do(http.MethodPost, "/storage/fill").Code)
	<-s.filler.started

	rec := s.do(http.MethodPost, "/storage/reset")

	s.Equal(http.StatusOK, rec.Code)
	var response models.ResetResponse
	s.decode(rec, &response)
	s.Equal(string(runner.OutcomeCancelledFill), response.Outcome)

	status := s.runner.Wait()
	s.Equal(models.JobCancelled, status.State)
	s.Equal(int64(4096), status.Remaining)
	s.Equal(0, s.filler.resets)
}

func (s *ServerTestSuite) TestResetDeletesFiles() {
	s.Equal(http.StatusAccepted, s.do(http.MethodPost, "/storage/fill").Code)
	s.runner.Wait()

	rec := s.do(http.MethodPost, "/storage/reset")

	s.Equal(http.StatusOK, rec.Code)
	var response models.ResetResponse
	s.decode(rec, &response)
	s.Equal(string(runner.OutcomeReset), response.Outcome)
	s.Equal(1, response.Deleted)
	s.Equal(1, s.filler.resets)
}

func (s *ServerTestSuite) TestResetRemoveFailure() {
	s.filler.resetErr = &filler.RemoveError{Path: "/mock/documents/dummy0", Err: errors.New("permission denied")}

	rec := s.do(http.MethodPost, "/storage/reset")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "dummy0")
}

func (s *ServerTestSuite) TestListFiles() {
	s.filler.files = []filler.DummyFile{
		{Index: 0, Path: "/mock/documents/dummy0", Size: 100},
		{Index: 1, Path: "/mock/documents/dummy1", Size: 50},
	}

	rec := s.do(http.MethodGet, "/storage/files")

	s.Equal(http.StatusOK, rec.Code)
	var list models.FileList
	s.decode(rec, &list)
	s.Len(list.Files, 2)
	s.Equal(int64(150), list.TotalBytes)
}

func (s *ServerTestSuite) TestListFilesError() {
	s.filler.filesErr = errors.New("io error")

	rec := s.do(http.MethodGet, "/storage/files")

	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *ServerTestSuite) TestSwaggerSpec() {
	rec := s.do(http.MethodGet, "/swagger.yml")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "yaml")
	s.Contains(rec.Body.String(), "/storage/fill")
}

func (s *ServerTestSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/file/upload")

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestShutdownCancelsActiveFill() {
	s.filler.block = true
	s.Equal(http.StatusAccepted, s.do(http.MethodPost, "/storage/fill").Code)
	<-s.filler.started

	s.NoError(s.server.Shutdown())

	s.False(s.runner.Active())
	s.Equal(models.JobCancelled, s.runner.Status().State)
}

func (s *ServerTestSuite) TestStartStopsWhenContextDone() {
	srv := NewFillServer("test-v1.0.0", s.runner)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- srv.Start(ctx, "127.0.0.1:0")
	}()
	s.Eventually(func() bool {
		return srv.echo.ListenerAddr() != nil
	}, 5*time.Second, 10*time.Millisecond)

	s.filler.block = true
	s.Require().NoError(s.runner.StartFill(context.Background()))
	<-s.filler.started

	cancel()
	select {
	case err := <-result:
		s.NoError(err)
	case <-time.After(15 * time.Second):
		s.Fail("server did not stop")
	}
	s.False(s.runner.Active())
	s.Equal(models.JobCancelled, s.runner.Status().State)
}

func (s *ServerTestSuite) TestStartListenFailure() {
	srv := NewFillServer("test-v1.0.0", s.runner)

	err := srv.Start(context.Background(), "127.0.0.1:-1")

	s.ErrorContains(err, "serve 127.0.0.1:-1")
	s.False(s.runner.Active())
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
