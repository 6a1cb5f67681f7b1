package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/planweave/planweave/internal/plan"
)

// Event is one message on a chat stream, delivered as an SSE data frame or a
// websocket text message depending on transport.
type Event struct {
	Type             string     `json:"type"` // status | token | plan | done | error
	Message          string     `json:"message,omitempty"`
	Content          string     `json:"content,omitempty"`
	Plan             *plan.Plan `json:"plan,omitempty"`
	ShouldCreatePlan bool       `json:"shouldCreatePlan,omitempty"`
	Error            string     `json:"error,omitempty"`
}

func statusEvent(msg string) Event  { return Event{Type: "status", Message: msg} }
func tokenEvent(tok string) Event   { return Event{Type: "token", Content: tok} }
func errorEvent(err error) Event    { return Event{Type: "error", Error: err.Error()} }
func planEvent(p *plan.Plan) Event  { return Event{Type: "plan", Plan: p, ShouldCreatePlan: true} }
func doneEvent() Event              { return Event{Type: "done"} }

// eventSink abstracts the stream transport so the chat flow is written once.
type eventSink interface {
	Send(ev Event) error
}

// sseSink writes events as server-sent data frames, flushing each one.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseSink{w: w, flusher: flusher}, nil
}

func (s *sseSink) Send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// wsSink writes events as websocket JSON messages.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(ev Event) error {
	return s.conn.WriteJSON(ev)
}
