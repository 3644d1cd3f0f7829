package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/assistant"
)

// Assistant is the conversational front door implemented by
// *assistant.Dispatcher.
type Assistant interface {
	Handle(ctx context.Context, req assistant.Request) assistant.Reply
	Stream(ctx context.Context, req assistant.Request, emit func(string) error) error
}

// AssistantHandler serves /v1/assistant/chat. With a nil Assistant (no
// model configured) every call answers 503.
type AssistantHandler struct {
	assistant Assistant
	logger    *zap.Logger
}

func NewAssistantHandler(a Assistant, logger *zap.Logger) *AssistantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantHandler{assistant: a, logger: logger.Named("assistant")}
}

type chatReq struct {
	Message        string `json:"message" validate:"max=4000"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=64"`
}

// Chat answers one conversational turn. Clients that accept
// text/event-stream get the reply as SSE chunks of the form
// `data: {"content": "..."}` closed by `data: [DONE]`; everyone else gets a
// single JSON reply.
func (h *AssistantHandler) Chat(c echo.Context) error {
	if h.assistant == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "assistant unavailable"})
	}
	var req chatReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ar := assistant.Request{UserID: userRef(c), ConversationID: req.ConversationID, Text: req.Message}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream") {
		return h.stream(c, ar)
	}
	return c.JSON(http.StatusOK, h.assistant.Handle(c.Request().Context(), ar))
}

func (h *AssistantHandler) stream(c echo.Context, ar assistant.Request) error {
	if strings.TrimSpace(ar.ConversationID) == "" {
		ar.ConversationID = uuid.NewString()
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.Header().Set("X-Conversation-ID", ar.ConversationID)
	res.WriteHeader(http.StatusOK)

	err := h.assistant.Stream(c.Request().Context(), ar, func(chunk string) error {
		payload, err := json.Marshal(map[string]string{"content": chunk})
		if err != nil {
			return err
		}
		return writeEvent(res, string(payload))
	})
	if err != nil {
		// the status line is already out; all that is left is to stop
		h.logger.Info("stream ended early", zap.String("conversation_id", ar.ConversationID), zap.Error(err))
		return nil
	}
	_ = writeEvent(res, "[DONE]")
	return nil
}

func writeEvent(res *echo.Response, data string) error {
	if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
