package controller

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/lshigami/Quokkas/internal/dto"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/lshigami/Quokkas/internal/service"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	engine   service.SyncEngine
	staging  service.StagingService
	exporter service.ExportService

	// Navigation selection: which subject the client is viewing.
	// Cleared when that subject is deleted so no dangling id survives.
	viewMu           sync.Mutex
	currentSubjectID string
}

func NewController(engine service.SyncEngine, staging service.StagingService, exporter service.ExportService) *Controller {
	return &Controller{
		engine:   engine,
		staging:  staging,
		exporter: exporter,
	}
}

func (ctrl *Controller) RegisterRoutes(router *gin.Engine) {
	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/library", ctrl.GetLibraryHandler)
		apiV1.GET("/status", ctrl.GetStatusHandler)
		apiV1.POST("/sync/flush", ctrl.FlushHandler)
		apiV1.PUT("/view", ctrl.SetViewHandler)

		subjects := apiV1.Group("/subjects")
		subjects.POST("", ctrl.CreateSubjectHandler)
		subjects.PUT("/:id", ctrl.RenameSubjectHandler)
		subjects.DELETE("/:id", ctrl.DeleteSubjectHandler)
		subjects.POST("/:id/lectures", ctrl.CreateLectureHandler)
		subjects.PUT("/:id/lectures/:lecture_id", ctrl.RenameLectureHandler)
		subjects.DELETE("/:id/lectures/:lecture_id", ctrl.DeleteLectureHandler)
		subjects.POST("/:id/lectures/reorder", ctrl.ReorderLectureHandler)
		subjects.DELETE("/:id/lectures/:lecture_id/questions/:question_id", ctrl.DeleteQuestionHandler)

		apiV1.PUT("/questions/:id", ctrl.UpdateQuestionHandler)

		staging := apiV1.Group("/staging")
		staging.POST("", ctrl.CreateStagingHandler)
		staging.GET("/:id", ctrl.GetStagingHandler)
		staging.POST("/:id/select", ctrl.ToggleSelectHandler)
		staging.POST("/:id/select-all", ctrl.SelectAllHandler)
		staging.POST("/:id/deselect-all", ctrl.DeselectAllHandler)
		staging.PUT("/:id/questions/:question_id", ctrl.EditStagedQuestionHandler)
		staging.POST("/:id/commit", ctrl.CommitStagingHandler)
		staging.DELETE("/:id", ctrl.DropStagingHandler)

		apiV1.POST("/export", ctrl.ExportHandler)
	}
}

// GetLibraryHandler godoc
// @Summary Get the full library tree
// @Produce json
// @Success 200 {object} dto.LibraryResponse
// @Router /library [get]
func (ctrl *Controller) GetLibraryHandler(c *gin.Context) {
	lib := ctrl.engine.Snapshot()
	subjects := make([]dto.SubjectDTO, 0, len(lib))
	if err := copier.Copy(&subjects, &lib); err != nil {
		log.Error().Err(err).Msg("Failed to map library to response")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to map library"})
		return
	}
	c.JSON(http.StatusOK, dto.LibraryResponse{Subjects: subjects})
}

func (ctrl *Controller) GetStatusHandler(c *gin.Context) {
	status := ctrl.engine.Status()
	ctrl.viewMu.Lock()
	current := ctrl.currentSubjectID
	ctrl.viewMu.Unlock()
	c.JSON(http.StatusOK, dto.StatusResponse{
		State:            string(status.State),
		SaveState:        string(status.SaveState),
		LoadWarning:      status.LoadWarning,
		LoadError:        status.LoadError,
		LastSaveError:    status.LastSaveError,
		CurrentSubjectID: current,
	})
}

func (ctrl *Controller) FlushHandler(c *gin.Context) {
	ctrl.engine.Flush()
	c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "flush triggered"})
}

func (ctrl *Controller) SetViewHandler(c *gin.Context) {
	var req dto.SetViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if findSubject(ctrl.engine.Snapshot(), req.SubjectID) == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "subject not found"})
		return
	}
	ctrl.viewMu.Lock()
	ctrl.currentSubjectID = req.SubjectID
	ctrl.viewMu.Unlock()
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "view updated"})
}

// CreateSubjectHandler godoc
// @Summary Create a subject
// @Accept json
// @Produce json
// @Param subject body dto.CreateSubjectRequest true "Subject name"
// @Success 201 {object} dto.SubjectDTO
// @Router /subjects [post]
func (ctrl *Controller) CreateSubjectHandler(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind CreateSubjectRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	var created model.Subject
	ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		next, _ := service.AddSubject(lib, req.Name)
		created = next[len(next)-1]
		return next, true
	})

	var resp dto.SubjectDTO
	copier.Copy(&resp, &created)
	c.JSON(http.StatusCreated, resp)
}

func (ctrl *Controller) RenameSubjectHandler(c *gin.Context) {
	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	id := c.Param("id")
	changed := ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.RenameSubject(lib, id, req.Name)
	})
	if !changed {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "subject not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "subject renamed"})
}

// DeleteSubjectHandler cascades: the subject's lectures and their
// questions go with it. The request must confirm the subject name.
func (ctrl *Controller) DeleteSubjectHandler(c *gin.Context) {
	var req dto.DeleteConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	id := c.Param("id")

	subject := findSubject(ctrl.engine.Snapshot(), id)
	if subject == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "subject not found"})
		return
	}
	if req.Confirm != subject.Name {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "confirmation text does not match the subject name"})
		return
	}

	ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.DeleteSubject(lib, id)
	})

	ctrl.viewMu.Lock()
	if ctrl.currentSubjectID == id {
		ctrl.currentSubjectID = ""
	}
	ctrl.viewMu.Unlock()

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "subject deleted"})
}

func (ctrl *Controller) CreateLectureHandler(c *gin.Context) {
	var req dto.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	subjectID := c.Param("id")

	var created model.Lecture
	changed := ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		next, ok := service.AddLecture(lib, subjectID, req.Name)
		if ok {
			if s := findSubject(next, subjectID); s != nil {
				created = s.Lectures[len(s.Lectures)-1]
			}
		}
		return next, ok
	})
	if !changed {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "subject not found"})
		return
	}

	var resp dto.LectureDTO
	copier.Copy(&resp, &created)
	c.JSON(http.StatusCreated, resp)
}

func (ctrl *Controller) RenameLectureHandler(c *gin.Context) {
	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	lectureID := c.Param("lecture_id")
	changed := ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.RenameLecture(lib, lectureID, req.Name)
	})
	if !changed {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "lecture not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "lecture renamed"})
}

func (ctrl *Controller) DeleteLectureHandler(c *gin.Context) {
	var req dto.DeleteConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	subjectID := c.Param("id")
	lectureID := c.Param("lecture_id")

	lecture := findLecture(ctrl.engine.Snapshot(), subjectID, lectureID)
	if lecture == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "lecture not found"})
		return
	}
	if req.Confirm != lecture.Name {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "confirmation text does not match the lecture name"})
		return
	}

	ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.DeleteLecture(lib, subjectID, lectureID)
	})
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "lecture deleted"})
}

// ReorderLectureHandler moves moved_id immediately before target_id.
// Missing ids and self-moves are no-ops, mirroring drag-and-drop.
func (ctrl *Controller) ReorderLectureHandler(c *gin.Context) {
	var req dto.ReorderLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	subjectID := c.Param("id")
	ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.ReorderLecture(lib, subjectID, req.MovedID, req.TargetID)
	})
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "order updated"})
}

func (ctrl *Controller) UpdateQuestionHandler(c *gin.Context) {
	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if req.CorrectOptionIndex != nil &&
		(*req.CorrectOptionIndex < 0 || *req.CorrectOptionIndex >= len(req.Options)) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "correct_option_index out of range"})
		return
	}

	id := c.Param("id")
	content := model.Question{
		Text:               req.Text,
		Options:            req.Options,
		CorrectOptionIndex: req.CorrectOptionIndex,
		AnswerText:         req.AnswerText,
	}
	changed := ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.UpdateQuestion(lib, id, content)
	})
	if !changed {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "question not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "question updated"})
}

func (ctrl *Controller) DeleteQuestionHandler(c *gin.Context) {
	subjectID := c.Param("id")
	lectureID := c.Param("lecture_id")
	questionID := c.Param("question_id")
	changed := ctrl.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return service.DeleteQuestion(lib, subjectID, lectureID, questionID)
	})
	if !changed {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "question not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "question deleted"})
}

// CreateStagingHandler godoc
// @Summary Upload exam images and start a staging session
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} service.StagingSession
// @Router /staging [post]
func (ctrl *Controller) CreateStagingHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "expected multipart form: " + err.Error()})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no images uploaded"})
		return
	}

	images := make([]service.StagedImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "open upload " + fh.Filename + ": " + err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "read upload " + fh.Filename + ": " + err.Error()})
			return
		}
		images = append(images, service.StagedImage{
			Name: fh.Filename,
			Mime: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}

	session, err := ctrl.staging.CreateSession(c.Request.Context(), images)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create staging session")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (ctrl *Controller) GetStagingHandler(c *gin.Context) {
	session, err := ctrl.staging.Session(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (ctrl *Controller) ToggleSelectHandler(c *gin.Context) {
	var req dto.SelectQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := ctrl.staging.ToggleSelect(c.Param("id"), req.QuestionID); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "selection toggled"})
}

func (ctrl *Controller) SelectAllHandler(c *gin.Context) {
	if err := ctrl.staging.SelectAll(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "all selected"})
}

func (ctrl *Controller) DeselectAllHandler(c *gin.Context) {
	if err := ctrl.staging.DeselectAll(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "all deselected"})
}

func (ctrl *Controller) EditStagedQuestionHandler(c *gin.Context) {
	var req dto.EditStagedQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	edit := service.DraftEdit{
		Text:               req.Text,
		Options:            req.Options,
		CorrectOptionIndex: req.CorrectOptionIndex,
		AnswerText:         req.AnswerText,
	}
	if err := ctrl.staging.UpdateDraft(c.Param("id"), c.Param("question_id"), edit); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "draft updated"})
}

func (ctrl *Controller) CommitStagingHandler(c *gin.Context) {
	var req dto.CommitStagingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	committed, err := ctrl.staging.Commit(c.Param("id"), req.SubjectID, req.LectureID)
	if err != nil {
		log.Warn().Err(err).Str("session", c.Param("id")).Msg("Staging commit failed")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.CommitResponse{Committed: committed})
}

func (ctrl *Controller) DropStagingHandler(c *gin.Context) {
	ctrl.staging.Drop(c.Param("id"))
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "session dropped"})
}

// ExportHandler godoc
// @Summary Export selected lectures as a PDF study guide
// @Accept json
// @Produce application/pdf
// @Param export body dto.ExportRequest true "Export selection and options"
// @Router /export [post]
func (ctrl *Controller) ExportHandler(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	pdfBytes, err := ctrl.exporter.BuildStudyGuide(ctrl.engine.Snapshot(), service.ExportOptions{
		LectureIDs:  req.LectureIDs,
		BaseSize:    req.BaseSize,
		ShowAnswers: req.ShowAnswers,
	})
	if err != nil {
		log.Error().Err(err).Msg("Study guide export failed")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="study-guide.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func findSubject(lib model.Library, id string) *model.Subject {
	for i := range lib {
		if lib[i].ID == id {
			return &lib[i]
		}
	}
	return nil
}

func findLecture(lib model.Library, subjectID, lectureID string) *model.Lecture {
	s := findSubject(lib, subjectID)
	if s == nil {
		return nil
	}
	for i := range s.Lectures {
		if s.Lectures[i].ID == lectureID {
			return &s.Lectures[i]
		}
	}
	return nil
}
