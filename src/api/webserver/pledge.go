package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the80percentbill/pledge-api/src/api/pledge"
	"github.com/the80percentbill/pledge-api/src/api/store"
)

type Pledge struct {
	wf *pledge.Workflow
	st *store.Store
}

func NewPledge(wf *pledge.Workflow, st *store.Store) Pledge {
	return Pledge{wf: wf, st: st}
}

// sessionView is the client-visible session state. The pending code
// never leaves the server.
func sessionView(s *pledge.Session) gin.H {
	if s == nil {
		return nil
	}
	return gin.H{
		"id":             s.ID,
		"step":           s.Step,
		"candidates":     s.Candidates,
		"district":       s.District,
		"representative": s.Rep,
		"email":          s.PendingEmail,
	}
}

func respondErr(c *gin.Context, s *pledge.Session, err error) {
	var ue *pledge.UserError
	switch {
	case errors.As(err, &ue):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"err": ue.Message, "session": sessionView(s)})
	case errors.Is(err, pledge.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "session not found"})
	case errors.Is(err, store.ErrShrinkGuard), errors.Is(err, store.ErrMonotonicity):
		c.JSON(http.StatusInternalServerError, gin.H{"err": "signature write refused"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}

func (p Pledge) Start(c *gin.Context) {
	s, err := p.wf.StartSession(c.Request.Context())
	if err != nil {
		respondErr(c, nil, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sessionView(s)})
}

func (p Pledge) State(c *gin.Context) {
	s, err := p.wf.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) Search(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Query     string `json:"query" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.Search(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) Confirm(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Address   string `json:"address" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.Confirm(c.Request.Context(), req.SessionID, req.Address)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) EnterDistrict(c *gin.Context) {
	var req struct {
		SessionID      string `json:"sessionId" binding:"required"`
		District       string `json:"district" binding:"required,max=16"`
		Representative string `json:"representative" binding:"max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.EnterDistrict(c.Request.Context(), req.SessionID, req.District, req.Representative)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) Sign(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Name      string `json:"name" binding:"required,max=255"`
		Email     string `json:"email" binding:"required,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.Sign(c.Request.Context(), req.SessionID, req.Name, req.Email)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) Verify(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		Code      string `json:"code" binding:"required,len=4"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.VerifyCode(c.Request.Context(), req.SessionID, req.Code)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

func (p Pledge) Reset(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	s, err := p.wf.Reset(c.Request.Context(), req.SessionID)
	if err != nil {
		respondErr(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
}

// Stats is a best-effort public counter for the campaign dashboard.
func (p Pledge) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	total, err := p.st.RowCount(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"total": 0, "districts": 0})
		return
	}
	districts, _ := p.st.Districts(ctx)
	c.JSON(http.StatusOK, gin.H{"total": total, "districts": districts})
}
