package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsapp-wrapped/internal/cache"
	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/pkg/config"
)

// Мок для ChatProcessor
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessChat(ctx context.Context, filePath, filename string) (*domain.Report, error) {
	args := m.Called(ctx, filePath, filename)
	if res := args.Get(0); res != nil {
		return res.(*domain.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

// uploadRequest собирает мультипарт-запрос с одним файлом.
func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	fw, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/process", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func completedReport(userCount int) *domain.Report {
	users := make([]domain.UserStats, userCount)
	for i := range users {
		users[i] = domain.UserStats{Name: fmt.Sprintf("user-%02d", i), TotalMessages: i + 1}
	}
	return &domain.Report{
		Metadata: domain.ChatMetadata{Filename: "chat", TotalMessages: 100, TotalMembers: userCount},
		Analytics: &domain.ChatAnalytics{
			TotalMessages: 100,
			TotalMembers:  userCount,
			UserStats:     users,
		},
		HTML: []byte("<!DOCTYPE html><html><body>report</body></html>"),
	}
}

func TestServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.Server{Host: "localhost", Port: 8080, MaxUploadSizeMB: 10},
	}
	mockProc := new(mockProcessor)
	taskStore := NewTaskStore()
	cacheStore := cache.NewCacheStore()

	srv, err := New(cfg, mockProc, taskStore, cacheStore)
	require.NoError(t, err)

	t.Run("Health Check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		err := json.NewDecoder(rr.Body).Decode(&resp)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Process Endpoint", func(t *testing.T) {
		mockProc.On("ProcessChat", mock.Anything, mock.AnythingOfType("string"), "export.txt").
			Return(completedReport(1), nil).Once()

		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, uploadRequest(t, "export.txt", "21/06/23, 11:00 - Leo: hi"))

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var resp map[string]string
		err := json.NewDecoder(rr.Body).Decode(&resp)
		require.NoError(t, err)
		assert.NotEmpty(t, resp["task_id"])

		// Даем горутине обработки время запуститься
		time.Sleep(50 * time.Millisecond)
		mockProc.AssertExpectations(t)
	})

	t.Run("Process Endpoint - Unsupported Extension", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, uploadRequest(t, "export.pdf", "junk"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Process Endpoint - Missing File", func(t *testing.T) {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		require.NoError(t, writer.WriteField("note", "no file here"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/api/v1/process", &b)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Process By Hash - Cache Hit", func(t *testing.T) {
		hash := cache.CalculateHashFromString("cached export")
		cacheStore.Put(hash, completedReport(2), time.Minute)

		body := strings.NewReader(fmt.Sprintf(`{"hash":%q}`, hash))
		req := httptest.NewRequest("POST", "/api/v1/process-by-hash", body)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

		time.Sleep(50 * time.Millisecond)
		task, err := taskStore.GetTask(resp["task_id"])
		require.NoError(t, err)
		assert.Equal(t, TaskStatusCompleted, task.Status)
	})

	t.Run("Process By Hash - Cache Miss", func(t *testing.T) {
		body := strings.NewReader(`{"hash":"unknown"}`)
		req := httptest.NewRequest("POST", "/api/v1/process-by-hash", body)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

		time.Sleep(50 * time.Millisecond)
		task, err := taskStore.GetTask(resp["task_id"])
		require.NoError(t, err)
		assert.Equal(t, TaskStatusFailed, task.Status)
	})

	t.Run("Task Status Endpoint", func(t *testing.T) {
		taskID := "test-task-1"
		srv.taskStore.CreateTask(taskID, time.Minute)

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID, nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		err := json.NewDecoder(rr.Body).Decode(&resp)
		require.NoError(t, err)
		assert.Equal(t, taskID, resp["task_id"])
		assert.Equal(t, string(TaskStatusPending), resp["status"])
	})

	t.Run("Task Not Found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tasks/non-existent", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Task Result Endpoint - Not Completed", func(t *testing.T) {
		taskID := "test-task-2"
		srv.taskStore.CreateTask(taskID, time.Minute)

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/result", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Task Result Endpoint - Success with Pagination", func(t *testing.T) {
		taskID := "test-task-3"
		srv.taskStore.CreateTask(taskID, time.Minute)
		srv.taskStore.UpdateTaskResult(taskID, completedReport(15))

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/result?page=2&page_size=5", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Metadata   domain.ChatMetadata   `json:"metadata"`
			Analytics  *domain.ChatAnalytics `json:"analytics"`
			UserStats  []domain.UserStats    `json:"user_stats"`
			Pagination struct {
				CurrentPage int `json:"current_page"`
				PageSize    int `json:"page_size"`
				TotalItems  int `json:"total_items"`
				TotalPages  int `json:"total_pages"`
			} `json:"pagination"`
		}
		err := json.NewDecoder(rr.Body).Decode(&resp)
		require.NoError(t, err)

		assert.Equal(t, 2, resp.Pagination.CurrentPage)
		assert.Equal(t, 5, resp.Pagination.PageSize)
		assert.Equal(t, 15, resp.Pagination.TotalItems)
		assert.Equal(t, 3, resp.Pagination.TotalPages)

		require.Len(t, resp.UserStats, 5)
		assert.Equal(t, "user-05", resp.UserStats[0].Name)

		// Статистика участников отдается только через user_stats
		require.NotNil(t, resp.Analytics)
		assert.Empty(t, resp.Analytics.UserStats)
		assert.Equal(t, 100, resp.Analytics.TotalMessages)
		assert.Equal(t, "chat", resp.Metadata.Filename)
	})

	t.Run("Task Result Endpoint - Page Out of Range", func(t *testing.T) {
		taskID := "test-task-4"
		srv.taskStore.CreateTask(taskID, time.Minute)
		srv.taskStore.UpdateTaskResult(taskID, completedReport(3))

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/result?page=10&page_size=5", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			UserStats []domain.UserStats `json:"user_stats"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Empty(t, resp.UserStats)
	})

	t.Run("Task Report Endpoint", func(t *testing.T) {
		taskID := "test-task-5"
		srv.taskStore.CreateTask(taskID, time.Minute)
		srv.taskStore.UpdateTaskResult(taskID, completedReport(2))

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/report", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rr.Body.String(), "report")
	})

	t.Run("Task Report Endpoint - Rendered on Demand", func(t *testing.T) {
		taskID := "test-task-6"
		srv.taskStore.CreateTask(taskID, time.Minute)
		report := completedReport(2)
		report.HTML = nil
		srv.taskStore.UpdateTaskResult(taskID, report)

		req := httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/report", nil)
		rr := httptest.NewRecorder()
		srv.HTTPServer.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "<!DOCTYPE html>")
	})
}
