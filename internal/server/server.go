package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"whatsapp-wrapped/internal/adapters/exporter"
	"whatsapp-wrapped/internal/cache"
	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/pkg/config"
)

// ChatProcessor определяет интерфейс для варианта использования, который обрабатывает чаты.
type ChatProcessor interface {
	ProcessChat(ctx context.Context, filePath, filename string) (*domain.Report, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	processor  ChatProcessor
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor ChatProcessor, taskStore *TaskStore, cacheStore *cache.CacheStore) (*Server, error) {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Конечная точка для запуска новой задачи обработки
		r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
			// Разбор мультипарт-формы
			maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
			if err := r.ParseMultipartForm(maxUpload); err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}
			defer file.Close()

			filename := filepath.Base(header.Filename)
			ext := strings.ToLower(filepath.Ext(filename))
			if ext != ".zip" && ext != ".txt" {
				http.Error(w, "Поддерживаются только файлы .zip и .txt", http.StatusBadRequest)
				return
			}

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Создание временного файла для хранения загруженных данных.
			// Расширение сохраняется: от него зависит способ чтения экспорта.
			tempFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("chat_%s%s", taskID, ext))

			out, err := os.Create(tempFilePath)
			if err != nil {
				http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
				return
			}
			defer out.Close()

			if _, err := io.Copy(out, file); err != nil {
				http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
				return
			}

			slog.Info("Загружен файл экспорта", "task_id", taskID, "filename", filename, "size", header.Size)

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Создание контекста для задачи с таймаутом из конфигурации.
				taskCtx := context.Background()
				if cfg.Processing.TaskTimeoutSeconds > 0 {
					var cancel context.CancelFunc
					taskCtx, cancel = context.WithTimeout(context.Background(), cfg.TaskTimeout())
					defer cancel()
				}

				report, err := processor.ProcessChat(taskCtx, tempFilePath, filename)
				if err != nil {
					taskStore.UpdateTaskError(taskID, err.Error())
					// Очистка временного файла при ошибке
					os.Remove(tempFilePath)
					return
				}

				// Обновление задачи с результатом
				taskStore.UpdateTaskResult(taskID, report)

				// Очистка временного файла при успехе
				os.Remove(tempFilePath)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для запуска новой задачи обработки по хешу:
		// отчет возвращается из кеша без повторной загрузки файла
		r.Post("/process-by-hash", func(w http.ResponseWriter, r *http.Request) {
			// Разбор тела запроса
			var req struct {
				Hash string `json:"hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
				return
			}

			if req.Hash == "" {
				http.Error(w, "Требуется хеш", http.StatusBadRequest)
				return
			}

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

			// Запуск обработки в горутине
			go func() {
				// Обновление статуса до "в обработке"
				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				// Попытка получить результат из кеша
				if cachedItem, found := cacheStore.Get(req.Hash); found {
					taskStore.UpdateTaskResult(taskID, cachedItem.Data)
					slog.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", taskID)
					return
				}

				// Если отчет не найден в кеше, файл нужно загрузить заново
				// через /process.
				taskStore.UpdateTaskError(taskID, "Отчет не найден в кеше для данного хеша")
				slog.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", taskID)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для проверки статуса задачи
		r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":       task.ID,
				"status":        task.Status,
				"error_message": task.ErrorMessage,
			})
		})

		// Конечная точка для получения результата задачи. Статистика
		// участников отдается с пагинацией, остальная аналитика целиком.
		r.Get("/tasks/{taskID}/result", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			// Разбор параметров пагинации, по умолчанию 1 и 50
			parsedPage := 1
			parsedPageSize := 50
			if page := r.URL.Query().Get("page"); page != "" {
				if v, err := strconv.Atoi(page); err == nil && v > 0 {
					parsedPage = v
				}
			}
			if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
				if v, err := strconv.Atoi(pageSize); err == nil && v > 0 {
					parsedPageSize = v
				}
			}

			users := task.Result.Analytics.UserStats

			// Нарезка статистики участников в соответствии с пагинацией
			startIndex := (parsedPage - 1) * parsedPageSize
			endIndex := startIndex + parsedPageSize
			if startIndex >= len(users) {
				startIndex = len(users)
				endIndex = len(users)
			}
			if endIndex > len(users) {
				endIndex = len(users)
			}

			totalItems := len(users)
			totalPages := (totalItems + parsedPageSize - 1) / parsedPageSize // Округление вверх

			// Статистика участников отдается только через user_stats,
			// иначе пагинация не имела бы смысла
			analyticsView := *task.Result.Analytics
			analyticsView.UserStats = nil

			// Подготовка ответа
			response := struct {
				Metadata   domain.ChatMetadata    `json:"metadata"`
				Analytics  *domain.ChatAnalytics  `json:"analytics"`
				UserStats  []domain.UserStats     `json:"user_stats"`
				Pagination map[string]interface{} `json:"pagination"`
			}{
				Metadata:  task.Result.Metadata,
				Analytics: &analyticsView,
				UserStats: users[startIndex:endIndex],
				Pagination: map[string]interface{}{
					"current_page": parsedPage,
					"page_size":    parsedPageSize,
					"total_items":  totalItems,
					"total_pages":  totalPages,
				},
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		})

		// Конечная точка для получения готового HTML-отчета
		r.Get("/tasks/{taskID}/report", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			html := task.Result.HTML
			if len(html) == 0 {
				rendered, err := exporter.RenderHTML(task.Result)
				if err != nil {
					http.Error(w, "Не удалось отрисовать отчет", http.StatusInternalServerError)
					return
				}
				html = rendered
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(html)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	s := &Server{
		HTTPServer: httpServer,
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		processor:  processor,
	}

	// Запуск тикеров для очистки просроченных задач и элементов кеша
	ctx, cancel := context.WithCancel(context.Background())
	s.taskStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)
	s.cacheStore.StartCleanupTicker(ctx, config.DefaultCleanupInterval)

	// Тикеры живут до завершения работы процесса
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
