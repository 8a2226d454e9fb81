package meeting

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is the immutable description of one attendance run.
type Task struct {
	ID             string
	MeetingURL     string
	MaxDuration    time.Duration
	RecordAudio    bool
	RecordVideo    bool
	SegmentSeconds int
	Dir            string // working directory, <output>/<id>
}

const (
	segmentPrefix     = "audio_"
	segmentExt        = ".wav"
	compressedExt     = ".mp3"
	transcriptionsDir = "transcriptions"
)

// Screenshot names used for diagnostics.
const (
	ShotOpening       = "OPENING"
	ShotJoined        = "joined_success"
	ShotClickedJoin   = "clicked_join"
	ShotLoginWall     = "login_wall"
	ShotJoinTimeout   = "fail_timeout"
	ShotControlsLost  = "controls_lost"
	ShotCriticalError = "critical_error"
)

// SegmentPattern is the ffmpeg output pattern for rotated audio segments.
func (t *Task) SegmentPattern() string {
	return filepath.Join(t.Dir, segmentPrefix+"%03d"+segmentExt)
}

func (t *Task) SegmentPath(index int) string {
	return filepath.Join(t.Dir, SegmentName(index))
}

func (t *Task) CompressedPath(index int) string {
	return filepath.Join(t.Dir, fmt.Sprintf("%s%03d%s", segmentPrefix, index, compressedExt))
}

func (t *Task) VideoPath() string {
	return filepath.Join(t.Dir, "recording.mp4")
}

func (t *Task) AudioLogPath() string {
	return filepath.Join(t.Dir, "ffmpeg_audio.log")
}

func (t *Task) VideoLogPath() string {
	return filepath.Join(t.Dir, "ffmpeg_video.log")
}

func (t *Task) TranscriptionsDir() string {
	return filepath.Join(t.Dir, transcriptionsDir)
}

// TranscriptPath returns the local transcript path for a segment; ext is
// "txt" or "json".
func (t *Task) TranscriptPath(index int, ext string) string {
	return filepath.Join(t.TranscriptionsDir(), fmt.Sprintf("%s_%d.%s", t.ID, index, ext))
}

func (t *Task) ScreenshotPath(name string) string {
	return filepath.Join(t.Dir, name+".png")
}

func (t *Task) BriefingPath() string {
	return filepath.Join(t.Dir, "briefing.json")
}

// SegmentName returns the raw file name for a segment index.
func SegmentName(index int) string {
	return fmt.Sprintf("%s%03d%s", segmentPrefix, index, segmentExt)
}

// ParseSegmentIndex extracts the index from a raw segment file name.
func ParseSegmentIndex(name string) (int, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, segmentPrefix) || !strings.HasSuffix(base, segmentExt) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, segmentPrefix), segmentExt))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseTranscriptIndex extracts the segment index from a transcript file
// name written for taskID.
func ParseTranscriptIndex(taskID, name string) (int, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext != ".txt" && ext != ".json" {
		return 0, false
	}
	rest, ok := strings.CutPrefix(strings.TrimSuffix(base, ext), taskID+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NewTaskID returns "<date>_<8 hex>" like 2025-01-31_14-05-09_1a2b3c4d.
func NewTaskID(now time.Time) string {
	return now.Format("2006-01-02_15-04-05") + "_" + uuid.NewString()[:8]
}

type SegmentState string

const (
	SegmentRecording  SegmentState = "recording"
	SegmentReady      SegmentState = "ready"
	SegmentProcessing SegmentState = "processing"
	SegmentDone       SegmentState = "done"
	SegmentFailed     SegmentState = "failed"
)

// Segment is one rotated slice of the audio capture.
type Segment struct {
	Index int
	Path  string
	State SegmentState
	Err   error
}

type JoinState string

const (
	JoinOpening         JoinState = "opening"
	JoinPreJoin         JoinState = "pre-join"
	JoinJoining         JoinState = "joining"
	JoinInMeeting       JoinState = "in-meeting"
	JoinFailedLoginWall JoinState = "failed(login-wall)"
	JoinFailedTimeout   JoinState = "failed(timeout)"
)

// Terminal reports whether no further join transition is possible.
func (s JoinState) Terminal() bool {
	switch s {
	case JoinInMeeting, JoinFailedLoginWall, JoinFailedTimeout:
		return true
	}
	return false
}

// ExitReason records why the recording loop stopped.
type ExitReason string

const (
	ExitNone          ExitReason = ""
	ExitDuration      ExitReason = "duration"
	ExitEncoderDied   ExitReason = "encoder-died"
	ExitMeetingEnded  ExitReason = "meeting-ended"
	ExitControlsLost  ExitReason = "controls-lost"
	ExitCanceled      ExitReason = "canceled"
	ExitError         ExitReason = "error"
	ExitJoinFailed    ExitReason = "join-failed"
	ExitStartupFailed ExitReason = "startup-failed"
)

// TranscriptRecord is one persisted transcription result.
type TranscriptRecord struct {
	TaskID       string
	SegmentIndex int
	Text         string
	Structured   bool // Text holds a JSON document
	Path         string
}

// Briefing is the output of the summarization collaborator.
type Briefing struct {
	Subject string `json:"subject"`
	Body    string `json:"htmlBody"`
}

// Acceptance is what the caller of a start request observes.
type Acceptance struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// Report summarizes a finished task.
type Report struct {
	TaskID     string
	JoinState  JoinState
	ExitReason ExitReason
	Segments   []Segment
	Abandoned  []int // segments still in a worker when finalize gave up waiting
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}
