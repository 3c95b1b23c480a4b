package models

const (
	DefaultSessionID = "default"
	SessionHeader    = "X-Session-ID"
	SessionParam     = "session_id"

	ProcessedMessage       = "PDF processed and stored successfully!"
	NotReadyMessage        = "No PDF text available. Please upload and process a PDF first."
	AnswerErrorPlaceholder = "❌ Error fetching answer."
	UploadOKNotice         = "✅ PDF processed! Ask your questions above."
	UploadFailedNotice     = "❌ Failed to process PDF."
	DocumentLostNotice     = "⚠️ The PDF is no longer loaded. Please upload it again."

	ContextSeparator = "\n"
)

var (
	PromptTemplate = `Document Context:
%s

User Query: %s

Answer:`
)
