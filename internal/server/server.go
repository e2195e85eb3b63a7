// Package server exposes run progress over HTTP for long searches. It only
// ever sees copies delivered through the engine's round callback; the search
// state itself stays confined to the engine goroutine.
package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/quillworks/redraft/internal/core"
)

type Server struct {
	mu     sync.Mutex
	rounds []core.RoundLogEntry

	bestScore float64
	bestRound int
	rollbacks int
	state     string
}

func NewServer(initialScore float64) *Server {
	return &Server{
		bestScore: initialScore,
		state:     "running",
	}
}

// Observe is the engine's OnRound callback.
func (s *Server) Observe(entry core.RoundLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, entry)
	if entry.Accepted {
		s.bestScore = entry.BestCandidateScore
		s.bestRound = entry.Round
		s.rollbacks = 0
	} else {
		s.rollbacks++
	}
}

// Finish records the terminal state once the run ends.
func (s *Server) Finish(outcome core.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = string(outcome.Reason)
	s.bestScore = outcome.FinalScore
	s.bestRound = outcome.FinalRound
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/v1/status", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{
			"state":      s.state,
			"round":      len(s.rounds),
			"best_score": s.bestScore,
			"best_round": s.bestRound,
			"rollbacks":  s.rollbacks,
		})
	})

	r.GET("/v1/rounds", func(c *gin.Context) {
		s.mu.Lock()
		rounds := make([]core.RoundLogEntry, len(s.rounds))
		copy(rounds, s.rounds)
		s.mu.Unlock()
		c.JSON(http.StatusOK, rounds)
	})

	return r
}
