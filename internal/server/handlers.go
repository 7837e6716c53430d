package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/observability"
	"github.com/xjubep/ciguard/internal/owners"
	"github.com/xjubep/ciguard/internal/pipeline"
	"github.com/xjubep/ciguard/internal/repotree"
	"github.com/xjubep/ciguard/internal/workflow"
)

const maxDocumentBytes = 1 << 20

// validateResponse is the shared reply shape for all validate endpoints.
type validateResponse struct {
	Valid    bool           `json:"valid"`
	Findings []lint.Finding `json:"findings"`
}

// ruleInfo describes one registered rule for GET /v1/rules.
type ruleInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
}

func (s *Server) handleRules(c *gin.Context) {
	rules := s.registry.Rules()
	out := make([]ruleInfo, 0, len(rules))
	for _, rule := range rules {
		meta := rule.Meta()
		out = append(out, ruleInfo{
			ID:          meta.ID,
			Description: meta.Description,
			Severity:    string(meta.Severity),
		})
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

func (s *Server) handleValidateWorkflow(c *gin.Context) {
	data, ok := s.readDocument(c)
	if !ok {
		return
	}
	start := time.Now()
	wf, err := workflow.ParseWorkflowYAML(data)
	if err != nil {
		s.respondInvalid(c, "workflow", err, start)
		return
	}
	wf.Path = c.Query("filename")
	target := &lint.Target{Workflows: []workflow.Workflow{wf}}
	findings, err := s.run(target, "workflow/")
	if err != nil {
		s.respondEngineError(c, "workflow", err)
		return
	}
	s.respondFindings(c, "workflow", findings, start)
}

func (s *Server) handleValidatePipeline(c *gin.Context) {
	data, ok := s.readDocument(c)
	if !ok {
		return
	}
	start := time.Now()
	p, err := pipeline.ParsePipelineYAML(data)
	if err != nil {
		s.respondInvalid(c, "pipeline", err, start)
		return
	}
	p.Path = c.Query("filename")
	target := &lint.Target{Pipelines: []pipeline.Pipeline{p}}
	findings, err := s.run(target, "pipeline/")
	if err != nil {
		s.respondEngineError(c, "pipeline", err)
		return
	}
	s.respondFindings(c, "pipeline", findings, start)
}

// ownersRequest carries a CODEOWNERS document plus the repository paths its
// globs should be verified against.
type ownersRequest struct {
	Content string   `json:"content" binding:"required"`
	Paths   []string `json:"paths"`
}

func (s *Server) handleValidateOwners(c *gin.Context) {
	var req ownersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start := time.Now()
	set := owners.Parse([]byte(req.Content))
	target := &lint.Target{Owners: &set, OwnersPath: "CODEOWNERS"}
	if len(req.Paths) > 0 {
		target.Tree = repotree.FromPaths(req.Paths)
	}
	findings, err := s.run(target, "owners/")
	if err != nil {
		s.respondEngineError(c, "owners", err)
		return
	}
	s.respondFindings(c, "owners", findings, start)
}

// run executes the registry rules whose IDs carry the given prefix, so a
// single posted document is not blamed for everything else being absent.
func (s *Server) run(target *lint.Target, prefix string) ([]lint.Finding, error) {
	var enabled []string
	for _, id := range s.registry.IDs() {
		if strings.HasPrefix(id, prefix) || strings.HasPrefix(id, "custom/") {
			enabled = append(enabled, id)
		}
	}
	engine, err := lint.NewEngine(s.registry, lint.Options{Enabled: enabled})
	if err != nil {
		return nil, err
	}
	return engine.Run(target), nil
}

func (s *Server) readDocument(c *gin.Context) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is empty"})
		return nil, false
	}
	if len(data) > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document exceeds 1 MiB"})
		return nil, false
	}
	return data, true
}

func (s *Server) respondEngineError(c *gin.Context, kind string, err error) {
	s.logger.Error().Err(err).Str("kind", kind).Msg("lint engine unavailable")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) respondInvalid(c *gin.Context, kind string, err error, start time.Time) {
	findings := []lint.Finding{{
		Rule:     lint.ParseRuleID,
		Severity: lint.SeverityError,
		Message:  err.Error(),
	}}
	observability.RecordCheck(kind, "invalid", severityCounts(findings), time.Since(start))
	c.JSON(http.StatusUnprocessableEntity, validateResponse{Valid: false, Findings: findings})
}

func (s *Server) respondFindings(c *gin.Context, kind string, findings []lint.Finding, start time.Time) {
	if findings == nil {
		findings = []lint.Finding{}
	}
	valid := !lint.HasErrors(findings)
	outcome := "ok"
	if !valid {
		outcome = "invalid"
	}
	observability.RecordCheck(kind, outcome, severityCounts(findings), time.Since(start))
	c.JSON(http.StatusOK, validateResponse{Valid: valid, Findings: findings})
}

func severityCounts(findings []lint.Finding) map[string]int {
	counts := make(map[string]int, 3)
	for _, f := range findings {
		counts[string(f.Severity)]++
	}
	return counts
}
