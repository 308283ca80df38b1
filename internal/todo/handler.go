// Package todo holds the read and write paths over the todo store.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"todoweb/internal/store"
	"todoweb/pkg/mq"
)

const (
	ActionCreate = "create"
	ActionToggle = "toggle"
	ActionDelete = "delete"
)

// Store is the subset of *store.Store the handler needs.
type Store interface {
	List(ctx context.Context) ([]store.Todo, error)
	Create(ctx context.Context, title string, description *string) (store.Todo, error)
	Toggle(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	st  Store
	pub mq.Publisher
	log zerolog.Logger
}

// New returns a Handler. A nil publisher means events are dropped.
func New(st Store, pub mq.Publisher, log zerolog.Logger) *Handler {
	if pub == nil {
		pub = mq.Noop{}
	}
	return &Handler{st: st, pub: pub, log: log}
}

type ListResult struct {
	Todos []store.Todo `json:"todos"`
	OK    bool         `json:"success"`
	Error string       `json:"error,omitempty"`
}

// ListTodos never fails: a datastore error yields an empty list with OK=false.
func (h *Handler) ListTodos(ctx context.Context) ListResult {
	todos, err := h.st.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("database error")
		return ListResult{Todos: []store.Todo{}, OK: false, Error: msgLoadFailed}
	}
	return ListResult{Todos: todos, OK: true}
}

// Mutation is one write request. Nil fields were absent from the form.
type Mutation struct {
	Action      string
	Title       *string
	Description *string
	ID          *string
}

// ParseMutation reads the _action discriminator and its fields from a submitted form.
func ParseMutation(form url.Values) Mutation {
	return Mutation{
		Action:      form.Get("_action"),
		Title:       field(form, "title"),
		Description: field(form, "description"),
		ID:          field(form, "id"),
	}
}

func field(form url.Values, key string) *string {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

// Apply performs one mutation. Unknown actions are a successful no-op.
func (h *Handler) Apply(ctx context.Context, m Mutation) error {
	switch m.Action {
	case ActionCreate:
		return h.create(ctx, m)
	case ActionToggle:
		return h.toggle(ctx, m)
	case ActionDelete:
		return h.remove(ctx, m)
	default:
		h.log.Warn().Str("action", m.Action).Msg("ignoring unknown action")
		return nil
	}
}

func (h *Handler) create(ctx context.Context, m Mutation) error {
	if m.Title == nil || *m.Title == "" {
		return &Error{Kind: KindValidation, Msg: msgTitleRequired}
	}
	t, err := h.st.Create(ctx, *m.Title, m.Description)
	if err != nil {
		return h.failed(err)
	}
	h.publish(mq.TopicTodoCreated, t.ID)
	return nil
}

func (h *Handler) toggle(ctx context.Context, m Mutation) error {
	if m.ID == nil {
		return &Error{Kind: KindValidation, Msg: msgInvalidID}
	}
	if err := h.st.Toggle(ctx, *m.ID); err != nil {
		return h.failed(err)
	}
	h.publish(mq.TopicTodoToggled, *m.ID)
	return nil
}

func (h *Handler) remove(ctx context.Context, m Mutation) error {
	if m.ID == nil {
		return &Error{Kind: KindValidation, Msg: msgInvalidID}
	}
	if err := h.st.Delete(ctx, *m.ID); err != nil {
		return h.failed(err)
	}
	h.publish(mq.TopicTodoDeleted, *m.ID)
	return nil
}

func (h *Handler) failed(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: msgNotFound, Err: err}
	}
	h.log.Error().Err(err).Msg("database error")
	return &Error{Kind: KindInternal, Msg: msgOpFailed, Err: err}
}

func (h *Handler) publish(topic, id string) {
	payload, _ := json.Marshal(map[string]string{"id": id})
	if err := h.pub.Publish(topic, payload); err != nil {
		h.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}
