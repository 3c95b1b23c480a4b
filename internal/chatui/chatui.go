// Package chatui serves the browser chat client. It keeps one conversation
// per browser session and forwards uploads and questions to the backend.
package chatui

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"pdf-qa/internal/backend"
	"pdf-qa/internal/handlers"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/models"
	"pdf-qa/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/index.html
var templatesFS embed.FS

const cookieName = "pdfqa_session"

// Backend is the part of the question-answering API the chat client uses.
type Backend interface {
	Process(ctx context.Context, sessionID, filename string, data []byte) (*models.IngestResponse, error)
	Ask(ctx context.Context, sessionID, query string) (string, error)
}

type App struct {
	backend        Backend
	conversations  *session.Store[*Conversation]
	md             goldmark.Markdown
	sessionTTL     time.Duration
	maxUploadBytes int64
}

type Options struct {
	MaxSessions    int
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

func NewApp(client Backend, opts Options) *App {
	return &App{
		backend: client,
		conversations: session.NewStore(opts.MaxSessions, opts.SessionTTL,
			func(string) *Conversation { return &Conversation{} }, nil),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		sessionTTL:     opts.SessionTTL,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// NewRouter wires the chat client routes.
func NewRouter(app *App) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger())
	router.SetHTMLTemplate(tmpl)

	router.GET("/", app.Index)
	router.POST("/upload", app.Upload)
	router.POST("/ask", app.Ask)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router, nil
}

type messageView struct {
	Role string
	HTML template.HTML
}

type pageData struct {
	Messages     []messageView
	PDFProcessed bool
	Notice       string
	NoticeOK     bool
}

// conversation returns the caller's session id and conversation. New
// browsers get a fresh id. The cookie is re-issued on every request so its
// lifetime slides with the server-side idle expiry.
func (a *App) conversation(c *gin.Context) (string, *Conversation) {
	id, err := c.Cookie(cookieName)
	if err != nil || id == "" {
		id, err = helper.GenerateUUID()
		if err != nil {
			log.Error().Err(err).Msg("Failed to generate session id")
			id = models.DefaultSessionID
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, id, int(a.sessionTTL.Seconds()), "/", "", false, true)

	conv, _ := a.conversations.GetOrCreate(id)
	return id, conv
}

func (a *App) Index(c *gin.Context) {
	_, conv := a.conversation(c)
	v := conv.view()

	data := pageData{PDFProcessed: v.PDFProcessed, Notice: v.Notice, NoticeOK: v.NoticeOK}
	for _, m := range v.Messages {
		data.Messages = append(data.Messages, messageView{Role: string(m.Role), HTML: a.render(m)})
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// render turns assistant answers from Markdown into HTML. User text is
// shown as typed.
func (a *App) render(m models.Message) template.HTML {
	if m.Role != models.RoleAssistant {
		return template.HTML(template.HTMLEscapeString(m.Content))
	}
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(m.Content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(m.Content))
	}
	return template.HTML(buf.String())
}

// Upload sends the PDF to the backend once per session.
func (a *App) Upload(c *gin.Context) {
	id, conv := a.conversation(c)
	defer c.Redirect(http.StatusSeeOther, "/")

	if !conv.beginUpload() {
		return
	}
	ok := false
	defer func() { conv.finishUpload(ok) }()

	if a.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Upload without a file")
		conv.setNotice(models.UploadFailedNotice, false)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		conv.setNotice(models.UploadFailedNotice, false)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		conv.setNotice(models.UploadFailedNotice, false)
		return
	}

	if _, err := a.backend.Process(c.Request.Context(), id, fileHeader.Filename, data); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Backend failed to process PDF")
		conv.setNotice(models.UploadFailedNotice, false)
		return
	}
	ok = true
	conv.setNotice(models.UploadOKNotice, true)
}

// Ask records the question, then the backend's answer or the error placeholder.
func (a *App) Ask(c *gin.Context) {
	id, conv := a.conversation(c)
	defer c.Redirect(http.StatusSeeOther, "/")

	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" || !conv.processed() {
		return
	}

	conv.append(models.RoleUser, query)

	answer, err := a.backend.Ask(c.Request.Context(), id, query)
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Backend failed to answer")
		answer = models.AnswerErrorPlaceholder

		// the backend no longer holds a document for this session
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			conv.resetProcessed()
			conv.setNotice(models.DocumentLostNotice, false)
		}
	}
	conv.append(models.RoleAssistant, answer)
}
