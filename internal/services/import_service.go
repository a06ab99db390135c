package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ocr"
	"fintrack/internal/parsers"
	"fintrack/internal/pdfext"
)

// SessionState tracks where an import session is in the reconciliation flow.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateFileSelected  SessionState = "file_selected"
	StatePdfPending    SessionState = "pdf_pending"
	StateOcrPending    SessionState = "ocr_pending"
	StateRejected      SessionState = "rejected"
	StatePreviewReady  SessionState = "preview_ready"
	StatePreviewFailed SessionState = "preview_failed"
	StateCommitted     SessionState = "committed"
)

var (
	ErrImportInFlight    = errors.New("an upload is already in flight for this session")
	ErrNoFiles           = errors.New("no files submitted")
	ErrUnsupportedUpload = errors.New("upload must be a single PDF or one or more images")
	ErrStaleCheck        = errors.New("duplicate check superseded by a newer one")
	ErrSessionNotFound   = errors.New("import session not found")
)

// UploadFile is one file of an import submission.
type UploadFile struct {
	Name string
	Data []byte
}

// Preview is the reviewable result of parsing an upload: candidate rows plus
// the duplicate flags computed against the target account.
type Preview struct {
	SessionID     string           `json:"session_id"`
	AccountNumber string           `json:"account_number,omitempty"`
	AccountID     int64            `json:"account_id,omitempty"`
	Rows          []core.Candidate `json:"rows"`
	Duplicates    []bool           `json:"duplicates"`
}

// TextExtractor pulls plain text out of PDF bytes.
type TextExtractor func(data []byte, password string) (string, error)

// Recognizer turns screenshot images into recognized text.
type Recognizer interface {
	RecognizeAll(ctx context.Context, images []ocr.Image) ([]string, error)
}

type session struct {
	id       string
	state    SessionState
	inFlight bool
	// checkToken orders duplicate rechecks; results carrying an older
	// token than the latest issued one are discarded.
	checkToken uint64
}

// ImportService drives the statement import reconciliation flow. Each
// session moves Idle -> FileSelected -> {PdfPending | OcrPending | Rejected}
// -> {PreviewReady | PreviewFailed} -> Committed -> Idle. A failed preview
// returns the session to Idle so the password can be re-entered.
type ImportService struct {
	txService *TransactionService
	extract   TextExtractor
	ocrClient Recognizer

	// afterCheck, when set, runs between the duplicate computation and the
	// staleness comparison. Used by tests to interleave rechecks.
	afterCheck func()

	mu       sync.Mutex
	sessions map[string]*session
}

func NewImportService(txService *TransactionService, ocrClient Recognizer) *ImportService {
	return &ImportService{
		txService: txService,
		extract:   pdfext.ExtractText,
		ocrClient: ocrClient,
		sessions:  map[string]*session{},
	}
}

// NewSession opens an idle import session and returns its id.
func (s *ImportService) NewSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{id: id, state: StateIdle}
	s.mu.Unlock()
	return id
}

// SessionStateOf reports a session's current state.
func (s *ImportService) SessionStateOf(sessionID string) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	return sess.state, nil
}

// Preview classifies and parses an upload. Exactly one PDF goes through text
// extraction, a set of images goes through OCR; anything else rejects the
// submission. While one upload is in flight further submissions for the same
// session are suppressed.
func (s *ImportService) Preview(ctx context.Context, sessionID, bankCode, password string, files []UploadFile) (Preview, error) {
	sess, err := s.beginUpload(sessionID)
	if err != nil {
		return Preview{}, err
	}
	defer s.endUpload(sess)

	if len(files) == 0 {
		s.setState(sess, StateRejected)
		return Preview{}, ErrNoFiles
	}

	parser, err := parsers.ForBank(bankCode)
	if err != nil {
		s.setState(sess, StatePreviewFailed)
		return Preview{}, err
	}

	var preview Preview

	switch classifyUpload(files) {
	case StatePdfPending:
		s.setState(sess, StatePdfPending)
		preview, err = s.previewPDF(parser, password, files[0])
	case StateOcrPending:
		s.setState(sess, StateOcrPending)
		preview, err = s.previewScreenshots(ctx, parser, files)
	default:
		s.setState(sess, StateRejected)
		return Preview{}, ErrUnsupportedUpload
	}
	preview.SessionID = sess.id

	if err != nil {
		s.setState(sess, StatePreviewFailed)
		return Preview{}, err
	}

	s.attachDuplicates(ctx, &preview)
	s.setState(sess, StatePreviewReady)

	slog.InfoContext(ctx, "Preview ready",
		"session_id", sess.id,
		"bank_code", bankCode,
		"row_count", len(preview.Rows))
	return preview, nil
}

// Recheck re-runs the duplicate matcher after the user edits preview rows.
// Every call takes a fresh monotonic token; when a newer recheck starts
// before this one finishes, this result is stale and dropped.
func (s *ImportService) Recheck(ctx context.Context, sessionID string, accountID int64, rows []core.Candidate, excludeID int64) ([]bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	sess.checkToken++
	token := sess.checkToken
	s.mu.Unlock()

	flags, err := s.txService.CheckDuplicates(ctx, accountID, rows, excludeID)
	if err != nil {
		return nil, err
	}
	if s.afterCheck != nil {
		s.afterCheck()
	}

	s.mu.Lock()
	stale := sess.checkToken != token
	s.mu.Unlock()
	if stale {
		return nil, ErrStaleCheck
	}
	return flags, nil
}

// Commit writes the reviewed rows through the batch path and recycles the
// session. Duplicate rows are skipped and counted, never errors.
func (s *ImportService) Commit(ctx context.Context, sessionID string, accountID int64, rows []core.Candidate, source string) (CommitResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return CommitResult{}, ErrSessionNotFound
	}

	result, err := s.txService.CommitBatch(ctx, accountID, rows, source)
	if err != nil {
		return result, err
	}

	s.setState(sess, StateCommitted)
	return result, nil
}

func (s *ImportService) previewPDF(parser parsers.StatementParser, password string, file UploadFile) (Preview, error) {
	text, err := s.extract(file.Data, password)
	if err != nil {
		return Preview{}, fmt.Errorf("extract %s: %w", file.Name, err)
	}

	st, err := parser.ParseStatement(text)
	if err != nil {
		return Preview{}, fmt.Errorf("parse statement %s: %w", file.Name, err)
	}
	return Preview{AccountNumber: st.AccountNumber, Rows: st.Rows}, nil
}

func (s *ImportService) previewScreenshots(ctx context.Context, parser parsers.StatementParser, files []UploadFile) (Preview, error) {
	images := make([]ocr.Image, len(files))
	for i, f := range files {
		images[i] = ocr.Image{Name: f.Name, Data: f.Data}
	}

	texts, err := s.ocrClient.RecognizeAll(ctx, images)
	if err != nil {
		return Preview{}, err
	}

	var preview Preview
	for i, text := range texts {
		sc, err := parser.ParseScreenshot(text)
		if err != nil {
			return Preview{}, fmt.Errorf("interpret %s: %w", files[i].Name, err)
		}
		if preview.AccountNumber == "" {
			preview.AccountNumber = sc.AccountNumber
		}
		preview.Rows = append(preview.Rows, sc.Row)
	}
	return preview, nil
}

// attachDuplicates resolves the target account from the parsed account
// number and flags rows already stored there. An unknown account number
// leaves every flag false; the user picks the account at commit time.
func (s *ImportService) attachDuplicates(ctx context.Context, preview *Preview) {
	preview.Duplicates = make([]bool, len(preview.Rows))
	if preview.AccountNumber == "" {
		return
	}

	account, err := s.txService.storage.FindAccountByNumber(ctx, preview.AccountNumber)
	if err != nil {
		return
	}
	preview.AccountID = account.ID

	flags, err := s.txService.CheckDuplicates(ctx, account.ID, preview.Rows, 0)
	if err != nil {
		slog.ErrorContext(ctx, "Duplicate check failed",
			"account_id", account.ID, "error", err)
		return
	}
	preview.Duplicates = flags
}

// beginUpload marks the session as having an upload in flight, creating the
// session on first use so one-shot clients can skip NewSession.
func (s *ImportService) beginUpload(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{id: sessionID, state: StateIdle}
		s.sessions[sessionID] = sess
	}
	if sess.inFlight {
		return nil, ErrImportInFlight
	}
	sess.inFlight = true
	sess.state = StateFileSelected
	return sess, nil
}

func (s *ImportService) endUpload(sess *session) {
	s.mu.Lock()
	sess.inFlight = false
	s.mu.Unlock()
}

// setState records the session's current state. Rejected, PreviewFailed and
// Committed are resting states; beginUpload moves the session forward again
// on the next submission, which is what "back to Idle" means here.
func (s *ImportService) setState(sess *session, state SessionState) {
	s.mu.Lock()
	sess.state = state
	s.mu.Unlock()
}

// classifyUpload decides the pipeline for a set of files: exactly one PDF,
// or one or more images. Mixed sets and multiple PDFs are rejected.
func classifyUpload(files []UploadFile) SessionState {
	pdfs, images := 0, 0
	for _, f := range files {
		if pdfext.IsPDF(f.Data) {
			pdfs++
		} else if isImage(f.Data) {
			images++
		}
	}
	switch {
	case pdfs == 1 && images == 0 && len(files) == 1:
		return StatePdfPending
	case pdfs == 0 && images == len(files) && images > 0:
		return StateOcrPending
	default:
		return StateRejected
	}
}

func isImage(data []byte) bool {
	switch {
	case len(data) >= 4 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return true
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return true
	default:
		return false
	}
}
