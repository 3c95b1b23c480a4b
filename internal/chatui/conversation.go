package chatui

import (
	"sync"

	"pdf-qa/internal/models"
)

// Conversation is the chat state of one browser session. History only
// grows; it lives as long as the session does.
type Conversation struct {
	mu           sync.Mutex
	messages     []models.Message
	pdfProcessed bool
	uploading    bool
	notice       string
	noticeOK     bool
}

type conversationView struct {
	Messages     []models.Message
	PDFProcessed bool
	Notice       string
	NoticeOK     bool
}

func (c *Conversation) append(role models.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, models.Message{Role: role, Content: content})
}

func (c *Conversation) processed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pdfProcessed
}

// beginUpload claims the upload guard. It reports false when a PDF was
// already processed or another upload of this session is in flight.
func (c *Conversation) beginUpload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pdfProcessed || c.uploading {
		return false
	}
	c.uploading = true
	return true
}

// finishUpload releases the guard taken by beginUpload.
func (c *Conversation) finishUpload(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	if ok {
		c.pdfProcessed = true
	}
}

// resetProcessed reopens the upload form after the backend lost the document.
func (c *Conversation) resetProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pdfProcessed = false
}

func (c *Conversation) setNotice(text string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = text
	c.noticeOK = ok
}

// view copies the state for rendering and clears the one-shot notice.
func (c *Conversation) view() conversationView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := conversationView{
		Messages:     append([]models.Message(nil), c.messages...),
		PDFProcessed: c.pdfProcessed,
		Notice:       c.notice,
		NoticeOK:     c.noticeOK,
	}
	c.notice = ""
	return v
}
