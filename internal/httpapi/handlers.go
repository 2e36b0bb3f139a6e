package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/apperr"
	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/metrics"
)

// writeError maps the service error taxonomy onto HTTP status codes.
// Internal and unknown errors are masked with a generic message.
func writeError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": e.Message}
	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case apperr.KindAuth:
		c.JSON(http.StatusUnauthorized, body)
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case apperr.KindConflict:
		if e.Field != "" {
			body["field"] = e.Field
		}
		c.JSON(http.StatusConflict, body)
	case apperr.KindState:
		if e.RetryAfter > 0 {
			secs := int(e.RetryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(secs))
			body["seconds_remaining"] = secs
			c.JSON(http.StatusTooManyRequests, body)
			return
		}
		c.JSON(http.StatusConflict, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func stepResult(err error) string {
	if err != nil {
		return "rejected"
	}
	return "ok"
}

func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		FullName string `json:"full_name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, full_name and password are required"})
		return
	}
	token, err := s.Auth.RequestRegistration(c.Request.Context(), req.Email, req.FullName, req.Password)
	metrics.Registrations.WithLabelValues("request", stepResult(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"provisional_token": token,
		"message":           "please scan your QR code to complete registration",
	})
}

func (s *Server) handleRegisterConfirm(c *gin.Context) {
	var req struct {
		ProvisionalToken string `json:"provisional_token" binding:"required"`
		QRPayload        string `json:"qr_payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provisional_token and qr_payload are required"})
		return
	}
	session, err := s.Auth.ConfirmRegistration(c.Request.Context(), req.ProvisionalToken, req.QRPayload)
	metrics.Registrations.WithLabelValues("confirm", stepResult(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(session))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	token, err := s.Auth.RequestLogin(c.Request.Context(), req.Email, req.Password)
	metrics.Logins.WithLabelValues("request", stepResult(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"temp_token": token,
		"message":    "password verified, please scan your QR code",
	})
}

func (s *Server) handleLoginConfirm(c *gin.Context) {
	var req struct {
		TempToken string `json:"temp_token" binding:"required"`
		QRPayload string `json:"qr_payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "temp_token and qr_payload are required"})
		return
	}
	session, err := s.Auth.ConfirmLogin(c.Request.Context(), req.TempToken, req.QRPayload)
	metrics.Logins.WithLabelValues("confirm", stepResult(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func sessionResponse(session auth.Session) gin.H {
	return gin.H{
		"session_token": session.Token,
		"teacher_id":    session.TeacherID,
		"full_name":     session.FullName,
		"email":         session.Email,
		"expires_at":    session.ExpiresAt.Unix(),
	}
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_password and new_password are required"})
		return
	}
	if err := s.Auth.ChangePassword(c.Request.Context(), auth.TeacherID(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

func (s *Server) handleProfile(c *gin.Context) {
	teacher, err := s.Auth.Profile(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

func (s *Server) handleListSubjects(c *gin.Context) {
	subjects, err := s.Roster.Subjects(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (s *Server) handleCreateSubject(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	subject, err := s.Roster.CreateSubject(c.Request.Context(), auth.TeacherID(c), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subject": subject})
}

func (s *Server) handleDeleteSubject(c *gin.Context) {
	if err := s.Roster.DeleteSubject(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subject deleted"})
}

func (s *Server) handleListSections(c *gin.Context) {
	sections, err := s.Roster.Sections(c.Request.Context(), auth.TeacherID(c), c.Query("subject_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

func (s *Server) handleCreateSection(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		SubjectID   string `json:"subject_id"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	section, err := s.Roster.CreateSection(c.Request.Context(), auth.TeacherID(c), req.SubjectID, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": section})
}

func (s *Server) handleUpdateSection(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	section, err := s.Roster.UpdateSection(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section})
}

func (s *Server) handleDeleteSection(c *gin.Context) {
	if err := s.Roster.DeleteSection(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "section deleted"})
}

func (s *Server) handleScan(c *gin.Context) {
	var req struct {
		SectionID string `json:"section_id" binding:"required"`
		StudentQR string `json:"student_qr" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section_id and student_qr are required"})
		return
	}
	res, err := s.Attendance.Scan(c.Request.Context(), auth.TeacherID(c), req.SectionID, req.StudentQR)
	if err != nil {
		if res.Status == attendance.StatusCooldown {
			secs := int(res.RetryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(secs))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":            res.Status,
				"student_name":      res.StudentName,
				"seconds_remaining": secs,
				"error":             err.Error(),
			})
			return
		}
		writeError(c, err)
		return
	}

	status := http.StatusOK
	var message string
	switch res.Status {
	case attendance.StatusIn:
		status = http.StatusCreated
		message = "time in recorded"
	case attendance.StatusOut:
		message = "time out recorded"
	case attendance.StatusCompleted:
		message = "attendance already complete for today"
	}
	c.JSON(status, gin.H{
		"status":       res.Status,
		"message":      message,
		"student_id":   res.StudentID,
		"student_name": res.StudentName,
		"time_in":      res.TimeIn,
		"time_out":     res.TimeOut,
	})
}

func (s *Server) handleManual(c *gin.Context) {
	var req struct {
		SectionID   string     `json:"section_id" binding:"required"`
		StudentID   string     `json:"student_id" binding:"required"`
		StudentName string     `json:"student_name" binding:"required"`
		Course      string     `json:"course"`
		TimeIn      time.Time  `json:"time_in"`
		TimeOut     *time.Time `json:"time_out"`
		Password    string     `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section_id, student_id, student_name and password are required"})
		return
	}
	entry := attendance.ManualEntry{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		Course:      req.Course,
		TimeIn:      req.TimeIn,
		TimeOut:     req.TimeOut,
	}
	if err := s.Attendance.Manual(c.Request.Context(), auth.TeacherID(c), req.SectionID, entry, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "attendance record added"})
}

func (s *Server) handleHistory(c *gin.Context) {
	f := attendance.Filters{
		Date:      c.Query("date"),
		SectionID: c.Query("section_id"),
		SubjectID: c.Query("subject_id"),
		Search:    c.Query("search"),
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	records, err := s.Attendance.History(c.Request.Context(), auth.TeacherID(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleStatsToday(c *gin.Context) {
	stats, err := s.Attendance.StatsToday(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
