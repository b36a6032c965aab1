package connect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

// AccountSource exchanges a code and lists the accounts to import.
type AccountSource interface {
	Exchange(ctx context.Context, code string) (string, error)
	AdAccounts(ctx context.Context, accessToken string) ([]AdAccount, error)
}

// Importer stores imported accounts in the backend.
type Importer interface {
	ImportFacebookAccounts(ctx context.Context, req backend.ImportRequest) error
}

// CallbackInput is the query of the provider redirect.
type CallbackInput struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackHandler finishes the provider side of a flow and delivers the
// result message to the waiting attempt.
type CallbackHandler struct {
	coordinator *Coordinator
	source      AccountSource
	importer    Importer
	logger      *zap.Logger
}

// NewCallbackHandler wires the handler.
func NewCallbackHandler(coordinator *Coordinator, source AccountSource, importer Importer, logger *zap.Logger) *CallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackHandler{coordinator: coordinator, source: source, importer: importer, logger: logger}
}

// Handle runs the exchange and import, then delivers the message. The
// returned message is what the callback page posts to its opener; the error
// reports a delivery that the coordinator rejected.
func (h *CallbackHandler) Handle(ctx context.Context, in CallbackInput) (Message, error) {
	origin := h.coordinator.opts.Origin
	claims, err := h.coordinator.opts.Signer.Verify(in.State)
	if err != nil {
		return errorMessage(origin, in.State, "invalid state"), errors.Join(ErrUnknownAttempt, err)
	}
	// The exchange consumes the code, so it only runs for a pending attempt.
	if _, err := h.coordinator.awaiting(claims.AttemptID, in.State); err != nil {
		return errorMessage(origin, in.State, "connection attempt is no longer active"), err
	}

	msg := h.result(ctx, in)
	msg.Origin = origin
	msg.State = in.State
	if err := h.coordinator.Deliver(ctx, msg); err != nil {
		h.logger.Warn("callback result not delivered", zap.String("type", string(msg.Type)), zap.Error(err))
		return msg, err
	}
	return msg, nil
}

func (h *CallbackHandler) result(ctx context.Context, in CallbackInput) Message {
	if in.Error != "" {
		text := in.ErrorDescription
		if text == "" {
			text = in.Error
		}
		return Message{Type: MessageError, Error: &ErrorPayload{Message: text}}
	}
	if in.Code == "" {
		return Message{Type: MessageError, Error: &ErrorPayload{Message: "missing authorization code"}}
	}
	token, err := h.source.Exchange(ctx, in.Code)
	if err != nil {
		return failure(err)
	}
	accounts, err := h.source.AdAccounts(ctx, token)
	if err != nil {
		return failure(err)
	}
	req := ImportRequest(token, accounts)
	if err := h.importer.ImportFacebookAccounts(ctx, req); err != nil {
		h.logger.Error("importing accounts failed", zap.Int("accounts", len(req.Accounts)), zap.Error(err))
		return Message{Type: MessageError, Error: &ErrorPayload{Message: "could not import accounts"}}
	}
	// Tokens stay server side; the opener only needs the account list.
	public := make([]backend.ImportedAccount, len(req.Accounts))
	copy(public, req.Accounts)
	for i := range public {
		public[i].Token = ""
	}
	return Message{Type: MessageSuccess, Data: &MessageData{Accounts: public}}
}

func failure(err error) Message {
	var provider *OAuthProviderError
	if errors.As(err, &provider) && provider.Message != "" {
		return Message{Type: MessageError, Error: &ErrorPayload{Message: provider.Message}}
	}
	return Message{Type: MessageError, Error: &ErrorPayload{Message: "authorization failed"}}
}

func errorMessage(origin, state, text string) Message {
	return Message{Origin: origin, State: state, Type: MessageError, Error: &ErrorPayload{Message: text}}
}
