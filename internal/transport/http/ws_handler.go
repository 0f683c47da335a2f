package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"millionaire-quiz-engine/internal/domain"
	"millionaire-quiz-engine/internal/engine"
)

// ControllerFactory builds a session controller bound to one
// connection's presenter. Each websocket client plays its own runs.
type ControllerFactory func(p engine.Presenter) *engine.Controller

type WSHandler struct {
	newController ControllerFactory
	banks         engine.BankRepository
	store         engine.ProgressStore
	datasetID     string
	upgrader      websocket.Upgrader
}

func NewWSHandler(factory ControllerFactory, banks engine.BankRepository, store engine.ProgressStore, datasetID string) *WSHandler {
	return &WSHandler{
		newController: factory,
		banks:         banks,
		store:         store,
		datasetID:     datasetID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Mode       domain.Mode `json:"mode"`
	Units      []string    `json:"units,omitempty"`
	QuestionID string      `json:"questionId,omitempty"`
}

type answerPayload struct {
	Index int `json:"index"`
}

type lifelinePayload struct {
	Kind domain.Lifeline `json:"kind"`
}

type resolvedPayload struct {
	Outcome      domain.Outcome `json:"outcome"`
	CorrectIndex int            `json:"correctIndex"`
	Explanation  string         `json:"explanation,omitempty"`
}

type endedPayload struct {
	Outcome    domain.Outcome `json:"outcome"`
	FinalPrize int64          `json:"finalPrize"`
	Mistakes   []string       `json:"mistakes"`
}

type lifelineApplied struct {
	Kind    domain.Lifeline `json:"kind"`
	Payload any             `json:"payload"`
}

type unitsPayload struct {
	Units  []string       `json:"units"`
	Counts map[string]int `json:"counts"`
}

type profilePayload struct {
	TotalPrize int64                 `json:"totalPrize"`
	History    []domain.HistoryEntry `json:"history"`
	Mistakes   []string              `json:"mistakes"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsPresenter forwards engine events to the connection's send queue.
// Sends never block the engine: when the client is slow the oldest
// queued event is dropped in its favor, like the session broadcasts.
type wsPresenter struct {
	send chan outboundMessage[any]
}

func (p *wsPresenter) QuestionReady(prompt engine.Prompt) {
	p.push(outboundMessage[any]{Type: "question", Payload: prompt})
}

func (p *wsPresenter) AnswerResolved(outcome domain.Outcome, correctIndex int, explanation string) {
	p.push(outboundMessage[any]{Type: "resolved", Payload: resolvedPayload{
		Outcome:      outcome,
		CorrectIndex: correctIndex,
		Explanation:  explanation,
	}})
}

func (p *wsPresenter) SessionEnded(outcome domain.Outcome, finalPrize int64, mistakes []string) {
	p.push(outboundMessage[any]{Type: "ended", Payload: endedPayload{
		Outcome:    outcome,
		FinalPrize: finalPrize,
		Mistakes:   mistakes,
	}})
}

func (p *wsPresenter) LifelineApplied(kind domain.Lifeline, payload any) {
	p.push(outboundMessage[any]{Type: "lifeline", Payload: lifelineApplied{Kind: kind, Payload: payload}})
}

func (p *wsPresenter) push(msg outboundMessage[any]) {
	select {
	case p.send <- msg:
	default:
		select {
		case <-p.send:
		default:
		}
		p.send <- msg
	}
}

// ServeWS upgrades the request and drives one player's session loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	presenter := &wsPresenter{send: send}
	controller := h.newController(presenter)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.push(errMsg("invalid start payload"))
				continue
			}
			if payload.Mode == "" {
				payload.Mode = domain.ModeNormal
			}
			_, err := controller.StartSession(ctx, payload.Mode, engine.StartOptions{
				DatasetID:  h.datasetID,
				Units:      payload.Units,
				QuestionID: payload.QuestionID,
			})
			if err != nil {
				presenter.push(errMsg(err.Error()))
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.push(errMsg("invalid answer payload"))
				continue
			}
			if err := controller.SubmitAnswer(payload.Index); err != nil {
				presenter.push(errMsg(err.Error()))
			}
		case "advance":
			phase, err := controller.Advance()
			if err != nil {
				presenter.push(errMsg(err.Error()))
				continue
			}
			if phase == domain.PhaseEndedWin || phase == domain.PhaseEndedLoss {
				if _, err := controller.Finalize(ctx); err != nil {
					presenter.push(errMsg(err.Error()))
				}
			}
		case "lifeline":
			var payload lifelinePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.push(errMsg("invalid lifeline payload"))
				continue
			}
			h.applyLifeline(controller, presenter, payload.Kind)
		case "abandon":
			controller.Abandon()
		case "units":
			h.sendUnits(ctx, presenter)
		case "profile":
			h.sendProfile(ctx, presenter)
		default:
			presenter.push(errMsg("unsupported message type"))
		}
	}

	// Abandon before closing the send queue: it cancels any pending
	// reveal timer under the controller mutex, so a timer in flight can
	// no longer reach the presenter once close(send) runs.
	controller.Abandon()
	close(send)
	<-writerDone
}

func (h *WSHandler) applyLifeline(controller *engine.Controller, presenter *wsPresenter, kind domain.Lifeline) {
	var err error
	switch kind {
	case domain.LifelineFiftyFifty:
		_, err = controller.UseFiftyFifty()
	case domain.LifelinePhoneFriend:
		_, err = controller.UsePhoneFriend()
	case domain.LifelineAskAudience:
		_, err = controller.UseAskAudience()
	default:
		err = domain.ErrNoActiveSession
	}
	if err != nil {
		presenter.push(errMsg(err.Error()))
	}
}

// sendUnits lists the dataset's units with question counts for the
// unit-selection screen.
func (h *WSHandler) sendUnits(ctx context.Context, presenter *wsPresenter) {
	b, err := h.banks.GetBank(ctx, h.datasetID)
	if err != nil {
		presenter.push(errMsg(err.Error()))
		return
	}
	presenter.push(outboundMessage[any]{Type: "units", Payload: unitsPayload{
		Units:  b.Units(),
		Counts: b.UnitCounts(),
	}})
}

// sendProfile surfaces the persisted balance, run log and mistake set.
// Store reads degrade to empty baselines, matching the engine's policy.
func (h *WSHandler) sendProfile(ctx context.Context, presenter *wsPresenter) {
	total, err := h.store.TotalPrize(ctx)
	if err != nil {
		log.Printf("progress store: read total prize: %v", err)
	}
	history, err := h.store.History(ctx)
	if err != nil {
		log.Printf("progress store: read history: %v", err)
	}
	mistakes, err := h.store.Mistakes(ctx)
	if err != nil {
		log.Printf("progress store: read mistakes: %v", err)
	}
	presenter.push(outboundMessage[any]{Type: "profile", Payload: profilePayload{
		TotalPrize: total,
		History:    history,
		Mistakes:   mistakes,
	}})
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
