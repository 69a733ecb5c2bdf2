package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"

	ChatModeNormal   = "normal"
	ChatModeThinking = "thinking"

	ChatDefaultTitle      = "New Chat"
	ChatImageTitleSeed    = "Image conversation"
	ChatImageDefaultQuery = "Describe this image."

	// Client-visible failure texts. Provider errors never reach the client.
	ChatGenericErrorReply  = "Something went wrong, please try again."
	ChatImageUploadFailed  = "Image upload failed"
	ChatNotFoundMessage    = "chat not found"
	ChatCreatedMessage     = "chat created successfully"
	ChatsFetchedMessage    = "chats fetched successfully"
	MessagesFetchedMessage = "messages fetched successfully"
	ChatDeletedMessage     = "chat deleted successfully"
	ImageTurnMessage       = "image processed successfully"

	ImageUploadFilePrefix = "aura"

	// In-process topic feeding the memory indexer.
	MemoryIndexTopic = "memory.index"
)

// Socket event names.
const (
	EventAIMessage        = "ai-message"
	EventAIImageMessage   = "ai-image-message"
	EventAIResponse       = "ai-response"
	EventImageUploaded    = "image-uploaded"
	EventImageUploadError = "image-upload-error"
)
