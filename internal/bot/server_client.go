package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ServerClient — клиент для взаимодействия с API бэкенд-сервера.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ServerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout, // Общий таймаут для запросов
		},
	}
}

// API-ответы
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PaginationDTO представляет собой объект пагинации из ответа сервера.
type PaginationDTO struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// MetadataDTO представляет метаданные чата из ответа сервера.
type MetadataDTO struct {
	Filename       string   `json:"filename"`
	TotalMessages  int      `json:"total_messages"`
	TotalMembers   int      `json:"total_members"`
	DateRangeStart string   `json:"date_range_start"`
	DateRangeEnd   string   `json:"date_range_end"`
	MemberNames    []string `json:"member_names"`
}

// AnalyticsDTO представляет сводную аналитику чата из ответа сервера.
type AnalyticsDTO struct {
	TotalMessages     int     `json:"total_messages"`
	TotalMembers      int     `json:"total_members"`
	TotalDays         int     `json:"total_days"`
	MessagesPerDay    float64 `json:"messages_per_day"`
	MostActiveWeekday string  `json:"most_active_day"`
	MostActiveHour    int     `json:"most_active_hour"`
}

// UserStatsDTO представляет статистику одного участника из ответа сервера.
type UserStatsDTO struct {
	Name             string  `json:"name"`
	TotalMessages    int     `json:"total_messages"`
	TotalWords       int     `json:"total_words"`
	AvgMessageLength float64 `json:"avg_message_length"`
	EmojiCount       int     `json:"emoji_count"`
	LongestStreak    int     `json:"longest_streak_days"`
	LongestSilence   int     `json:"longest_silence_days"`
	MostActiveHour   int     `json:"most_active_hour"`
	ActivityCategory string  `json:"activity_category"`
}

type TaskResultResponse struct {
	Metadata   MetadataDTO    `json:"metadata"`
	Analytics  AnalyticsDTO   `json:"analytics"`
	UserStats  []UserStatsDTO `json:"user_stats"`
	Pagination PaginationDTO  `json:"pagination"`
}

// StartTask отправляет файл экспорта на сервер для начала обработки.
func (c *ServerClient) StartTask(ctx context.Context, filename string, content io.Reader) (*StartTaskResponse, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file for %s: %w", filename, err)
	}
	if _, err = io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content for %s: %w", filename, err)
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/process", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result StartTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result TaskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetTaskResult запрашивает результат выполненной задачи.
func (c *ServerClient) GetTaskResult(ctx context.Context, taskID string, page, pageSize int) (*TaskResultResponse, error) {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/result?page=%d&page_size=%d", c.baseURL, taskID, page, pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result TaskResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetTaskReport запрашивает готовый HTML-отчет выполненной задачи.
func (c *ServerClient) GetTaskReport(ctx context.Context, taskID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID+"/report", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report body: %w", err)
	}

	return html, nil
}
