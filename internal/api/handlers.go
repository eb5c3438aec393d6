package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"daily-app/internal/domain"
)

const postSaveMaxSize = 64 << 10

var errTrailingData = errors.New("trailing data after body")

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

type pageData struct {
	Tasks []domain.Task
}

// Register wires up all routes and request middleware on the provided Echo
// instance. deduper may be nil, in which case saves are not deduplicated.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.Use(RequestMetricsMiddleware(logger))
	e.Use(GzipRequestMiddleware())

	e.GET("/", getPage(store, auth))
	e.GET("/daily/tasks", getTasks(store, auth))
	e.POST("/daily/save", postSave(store, auth, deduper, logger))
	e.POST("/daily/complete/:id", postComplete(store, auth, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func authenticate(c echo.Context, auth Authenticator) (string, error) {
	m := metricsFrom(c)
	start := time.Now()
	userID, err := auth.UserIDFromAuthHeader(authHeader(c))
	m.ObserveAuth(time.Since(start))
	if err != nil {
		m.SetErrorStage("auth")
	}
	return userID, err
}

// authenticateWrite authenticates a state-changing request and, when the
// credentials came from the session cookie, requires a same-origin caller.
func authenticateWrite(c echo.Context, auth Authenticator) (string, int, error) {
	userID, err := authenticate(c, auth)
	if err != nil {
		return "", http.StatusUnauthorized, err
	}
	if err := checkWriteOrigin(c.Request()); err != nil {
		metricsFrom(c).SetErrorStage("origin")
		return "", http.StatusForbidden, err
	}
	return userID, http.StatusOK, nil
}

func listTasks(c echo.Context, store Storage, userID string) ([]domain.Task, error) {
	m := metricsFrom(c)
	start := time.Now()
	tasks, err := store.ListTasks(c.Request().Context(), userID)
	m.ObserveStore(time.Since(start))
	if err != nil {
		m.SetErrorStage("storage")
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	m.SetTasksReturned(len(tasks))
	return tasks, nil
}

func getPage(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := listTasks(c, store, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		var buf bytes.Buffer
		if err := pageTemplate.Execute(&buf, pageData{Tasks: tasks}); err != nil {
			metricsFrom(c).SetErrorStage("render")
			return c.String(http.StatusInternalServerError, "render failed")
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}

func getTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := authenticate(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := listTasks(c, store, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func isFormRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm)
}

func decodeSaveRequest(c echo.Context) (saveRequest, error) {
	var body saveRequest
	req := c.Request()
	if isFormRequest(req) {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, postSaveMaxSize)
		if err := req.ParseForm(); err != nil {
			return body, err
		}
		for k := range req.PostForm {
			if k != "title" {
				return body, errors.New("unknown field " + k)
			}
		}
		body.Title = req.PostForm.Get("title")
		return body, nil
	}
	lr := io.LimitReader(req.Body, postSaveMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return body, err
	}
	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), lr))
	if err != nil || len(bytes.TrimSpace(rest)) != 0 {
		return body, errTrailingData
	}
	return body, nil
}

func postSave(store Storage, auth Authenticator, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFrom(c)
		userID, status, err := authenticateWrite(c, auth)
		if err != nil {
			return c.String(status, err.Error())
		}

		body, err := decodeSaveRequest(c)
		if err != nil {
			m.SetErrorStage("decode")
			return c.String(http.StatusBadRequest, "invalid body")
		}
		title, err := domain.NormalizeTitle(body.Title)
		if err != nil {
			m.SetErrorStage("validate")
			return c.String(http.StatusBadRequest, err.Error())
		}

		ctx := c.Request().Context()
		form := isFormRequest(c.Request())
		key := c.Request().Header.Get(IdempotencyHeader)
		recorded := false
		if key != "" && deduper != nil {
			added, err := deduper.Add(ctx, userID, key)
			switch {
			case err != nil:
				logger.WithFields(log.Fields{"user": userID, "reason": err}).Warn("idempotency check failed; saving anyway")
			case !added:
				m.SetDuplicate(true)
				if form {
					return c.Redirect(http.StatusSeeOther, "/")
				}
				return c.JSON(http.StatusOK, duplicateResponse{Duplicate: true})
			default:
				recorded = true
			}
		}

		start := time.Now()
		task, err := store.AddTask(ctx, userID, domain.Task{Title: title})
		m.ObserveStore(time.Since(start))
		if err != nil {
			if recorded {
				if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
					logger.WithFields(log.Fields{"user": userID, "reason": rerr}).Warn("idempotency key not released")
				}
			}
			if errors.Is(err, domain.ErrEmptyTitle) {
				m.SetErrorStage("validate")
				return c.String(http.StatusBadRequest, err.Error())
			}
			m.SetErrorStage("storage")
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to save task")
		}

		if form {
			return c.Redirect(http.StatusSeeOther, "/")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func postComplete(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFrom(c)
		userID, status, err := authenticateWrite(c, auth)
		if err != nil {
			return c.String(status, err.Error())
		}
		id := c.Param("id")
		// echo routes on RawPath when set, leaving the param escaped.
		if c.Request().URL.RawPath != "" {
			if id, err = url.PathUnescape(id); err != nil {
				m.SetErrorStage("decode")
				return c.String(http.StatusBadRequest, "invalid task id")
			}
		}
		if id == "" {
			return c.String(http.StatusNotFound, domain.ErrTaskNotFound.Error())
		}

		start := time.Now()
		err = store.CompleteTask(c.Request().Context(), userID, id)
		m.ObserveStore(time.Since(start))
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			m.SetErrorStage("not_found")
			return c.String(http.StatusNotFound, err.Error())
		case err != nil:
			m.SetErrorStage("storage")
			logger.WithFields(log.Fields{"user": userID, "task": id, "reason": err}).Error("complete task failed")
			return c.String(http.StatusInternalServerError, "failed to complete task")
		}
		return c.NoContent(http.StatusOK)
	}
}
