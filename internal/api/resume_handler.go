package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/errcode"
	"resumeMatcher/internal/resume"
)

// ResumeHandler 负责简历上传、查询与职位匹配。
type ResumeHandler struct {
	resumes  *resume.Service
	maxBytes int64
}

// NewResumeHandler 构造 ResumeHandler，maxBytes 为单个文件的大小上限。
func NewResumeHandler(resumes *resume.Service, maxBytes int64) *ResumeHandler {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &ResumeHandler{resumes: resumes, maxBytes: maxBytes}
}

// Upload 接收 multipart 字段 file。
func (h *ResumeHandler) Upload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, errcode.Validation("validation failed", map[string]string{"file": "is required"}))
		return
	}
	if file.Size > h.maxBytes {
		RespondError(c, errcode.Validation("validation failed", map[string]string{
			"file": "must be at most " + strconv.FormatInt(h.maxBytes, 10) + " bytes",
		}))
		return
	}

	reader, err := file.Open()
	if err != nil {
		RespondError(c, errcode.Unexpected(err))
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, h.maxBytes+1))
	if err != nil {
		RespondError(c, errcode.Unexpected(err))
		return
	}
	if int64(len(data)) > h.maxBytes {
		RespondError(c, errcode.Validation("validation failed", map[string]string{"file": "too large"}))
		return
	}

	resp, err := h.resumes.Upload(c.Request.Context(), resume.UploadInput{
		UserID:        userID,
		FileName:      file.Filename,
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

type createResumeRequest struct {
	FileName string `json:"fileName" binding:"max=255"`
	Text     string `json:"text" binding:"required"`
}

// Create 保存直接提交的简历文本。
func (h *ResumeHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}
	if int64(len(req.Text)) > h.maxBytes {
		RespondError(c, errcode.Validation("validation failed", map[string]string{"text": "too large"}))
		return
	}

	resp, err := h.resumes.CreateFromText(c.Request.Context(), resume.TextInput{
		UserID:        userID,
		FileName:      req.FileName,
		Text:          req.Text,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List 列出当前用户的简历。
func (h *ResumeHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	items, err := h.resumes.List(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get 返回当前用户的一份简历。
func (h *ResumeHandler) Get(c *gin.Context) {
	userID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	resp, err := h.resumes.Get(c.Request.Context(), userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete 删除当前用户的一份简历。
func (h *ResumeHandler) Delete(c *gin.Context) {
	userID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	if err := h.resumes.Delete(c.Request.Context(), userID, id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDownloadLink 生成原始文件的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	url, err := h.resumes.DownloadLink(c.Request.Context(), userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Matches 返回与简历匹配的职位，AI 不可用时返回空列表。
func (h *ResumeHandler) Matches(c *gin.Context) {
	userID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("max", "0"))
	resp, err := h.resumes.Match(c.Request.Context(), userID, id, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ResumeHandler) ownerAndID(c *gin.Context) (uint, uint, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return 0, 0, false
	}
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, err)
		return 0, 0, false
	}
	return userID, id, true
}
