package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

type importServiceMock struct {
	report  *models.ImportReport
	err     error
	payload []byte
}

func (m *importServiceMock) Import(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	m.payload, _ = io.ReadAll(r)
	return m.report, m.err
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestImportHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &importServiceMock{report: &models.ImportReport{
		StudentsCreated: 2,
		Credentials: []models.StudentCredential{
			{StudentCode: "E123", ExamNumber: "123", Password: "secret123"},
		},
	}}
	h := NewImportHandler(mockSvc, nil)

	body, contentType := multipartUpload(t, "file", "roster.xlsx", []byte("workbook bytes"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/imports", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("workbook bytes"), mockSvc.payload)
	assert.Contains(t, w.Body.String(), `"students_created":2`)
	assert.Contains(t, w.Body.String(), `"password":"secret123"`)
}

func TestImportHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(&importServiceMock{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/imports", bytes.NewBufferString(""))
	c.Request.Header.Set("Content-Type", "multipart/form-data")

	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
