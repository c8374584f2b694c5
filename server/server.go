package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Ingestor runs end-to-end document ingestion.
type Ingestor interface {
	Ingest(ctx context.Context, documentID int64, locator string) (int, error)
}

// Answerer resolves a query to an answer with citations.
type Answerer interface {
	Answer(ctx context.Context, query models.Query) (models.Answer, error)
}

type Config struct {
	Port string
}

type Server struct {
	config   Config
	ingestor Ingestor
	answers  Answerer
	caps     types.Capabilities
}

func New(config Config, ingestor Ingestor, answers Answerer, caps types.Capabilities) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	return &Server{
		config:   config,
		ingestor: ingestor,
		answers:  answers,
		caps:     caps,
	}
}

type ingestRequest struct {
	DocumentID int64  `json:"documentId"`
	FileURL    string `json:"fileUrl"`
}

type ingestResponse struct {
	OK         bool  `json:"ok"`
	Pages      int   `json:"pages"`
	DocumentID int64 `json:"documentId"`
}

type qaRequest struct {
	Query      string `json:"query"`
	DocumentID *int64 `json:"documentId,omitempty"`
	TopK       int    `json:"top_k"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/debug", s.handleDebug)
	mux.HandleFunc("/process/extract", s.handleIngest)
	mux.HandleFunc("/qa", s.handleQA)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) Run() error {
	log.Printf("docquery listening on :%s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": "docquery"})
}

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "docquery",
		"capabilities": map[string]bool{
			"ocr":      s.caps.OCR,
			"database": s.caps.Database,
			"answerer": s.caps.Answerer,
		},
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pages, err := s.ingestor.Ingest(r.Context(), req.DocumentID, req.FileURL)
	if err != nil {
		writeJSON(w, classifyStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Pages: pages, DocumentID: req.DocumentID})
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.answers.Answer(r.Context(), models.Query{
		Text:       req.Query,
		DocumentID: req.DocumentID,
		TopK:       req.TopK,
	})
	if err != nil {
		writeJSON(w, classifyStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// handleWebSocket answers QA requests over a socket, one query per message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req qaRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}

		s.sendMessage(conn, wsMessage{Type: "status", Content: "searching documents"})

		result, err := s.answers.Answer(r.Context(), models.Query{
			Text:       req.Query,
			DocumentID: req.DocumentID,
			TopK:       req.TopK,
		})
		if err != nil {
			s.sendMessage(conn, wsMessage{Type: "error", Content: err.Error()})
			continue
		}

		s.sendMessage(conn, wsMessage{Type: "answer", Content: result.Text, Data: result.Citations})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg wsMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// classifyStatus maps pipeline errors to caller-error vs processing-error
// responses.
func classifyStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidLocator),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrDownload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
