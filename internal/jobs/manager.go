package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"framefuse/internal/config"
	"framefuse/internal/encoder"
	"framefuse/internal/fileutil"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
	"framefuse/internal/services"
	"framefuse/internal/services/ffmpeg"
)

// FrameBlob is one uploaded frame held in memory between request parsing and
// the write into the job's work directory.
type FrameBlob struct {
	Name string
	Data []byte
}

// CommandRunner executes one external encoder invocation. Satisfied by
// ffmpeg.Runner; tests substitute stubs.
type CommandRunner interface {
	Run(ctx context.Context, cmd ffmpeg.Command, dir string, deadline time.Duration, onLine func(string)) (ffmpeg.Result, error)
}

// Scheduler queues a job for removal after a delay. Satisfied by Reaper.
type Scheduler interface {
	Schedule(jobID string, delay time.Duration)
}

// StartOptions carries the encode parameters accepted when a job is started.
// Zero values select the configured defaults.
type StartOptions struct {
	Codec     string
	Quality   string
	FrameRate int
}

// Artifact describes a completed job's downloadable output.
type Artifact struct {
	Path      string
	FileName  string
	MediaType string
	Size      int64
}

// Manager orchestrates the job lifecycle: registration, encode kickoff,
// status reads, and artifact handoff. Encodes run on background goroutines
// owned by the manager; Close blocks until they drain.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	runner  CommandRunner
	cleanup Scheduler
	logger  *slog.Logger
	now     func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires the orchestrator. cleanup may be nil, in which case
// downloaded jobs linger until the TTL sweep collects them.
func NewManager(cfg *config.Config, store *queue.Store, runner CommandRunner, cleanup Scheduler, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg,
		store:   store,
		runner:  runner,
		cleanup: cleanup,
		logger:  logging.NewComponentLogger(logger, "jobs"),
		now:     time.Now,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Close stops accepting pipeline work and waits for in-flight encodes to
// finish recording their terminal state.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// RegisterJob filters the upload down to PNG frames, persists them under a
// fresh work directory, and records the job in the uploaded state. Frame
// order is the lexicographic order of the sanitized file names.
func (m *Manager) RegisterJob(ctx context.Context, blobs []FrameBlob) (*queue.Job, error) {
	frames := make([]FrameBlob, 0, len(blobs))
	seen := make(map[string]bool)
	for _, blob := range blobs {
		name := sanitizeFrameName(blob.Name)
		if name == "" {
			continue
		}
		if seen[name] {
			m.logger.Warn("duplicate frame name after sanitizing, keeping first",
				logging.String("name", name))
			continue
		}
		seen[name] = true
		frames = append(frames, FrameBlob{Name: name, Data: blob.Data})
	}

	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrInvalidInput, "register", "filter", "no PNG frames in upload", nil)
	}
	if max := m.cfg.Jobs.MaxFrameCount; len(frames) > max {
		return nil, services.Wrap(services.ErrInvalidInput, "register", "filter",
			fmt.Sprintf("%d frames exceeds limit of %d", len(frames), max), nil)
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Name < frames[j].Name })

	id := uuid.NewString()
	workDir := filepath.Join(m.cfg.Paths.WorkDir, "job_"+id)
	if err := fileutil.EnsureDir(workDir); err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "register", "mkdir", "", err)
	}

	recorded := make([]queue.Frame, 0, len(frames))
	for _, frame := range frames {
		if err := os.WriteFile(filepath.Join(workDir, frame.Name), frame.Data, 0o644); err != nil {
			_ = fileutil.RemoveTree(workDir)
			return nil, services.Wrap(services.ErrStorageFailure, "register", "write frame", frame.Name, err)
		}
		recorded = append(recorded, queue.Frame{Original: frame.Name})
	}

	job, err := m.store.NewJob(ctx, id, workDir, recorded)
	if err != nil {
		_ = fileutil.RemoveTree(workDir)
		return nil, services.Wrap(services.ErrStorageFailure, "register", "persist job", "", err)
	}

	m.logger.Info("job registered",
		logging.String(logging.FieldJobID, id),
		logging.Int("frames", len(recorded)))
	return job, nil
}

// StartJob validates encode parameters, claims the uploaded-to-processing
// transition, and launches the encode pipeline in the background. A second
// start for the same job fails the state gate.
func (m *Manager) StartJob(ctx context.Context, id string, opts StartOptions) (*queue.Job, error) {
	codec, ok := encoder.ParseCodec(opts.Codec)
	if !ok {
		return nil, services.Wrap(services.ErrInvalidInput, "start", "parse codec", opts.Codec, nil)
	}
	quality, ok := encoder.ParseQuality(opts.Quality)
	if !ok {
		return nil, services.Wrap(services.ErrInvalidInput, "start", "parse quality", opts.Quality, nil)
	}
	frameRate := opts.FrameRate
	if frameRate <= 0 {
		frameRate = m.cfg.Encoder.DefaultFrameRate
	}
	frameRate = m.cfg.ClampFrameRate(frameRate)

	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "start", "load job", "", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "start", "load job", id, nil)
	}

	claimed, err := m.store.BeginProcessing(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "start", "claim job", "", err)
	}
	if !claimed {
		return nil, services.Wrap(services.ErrInvalidState, "start", "claim job",
			fmt.Sprintf("job is %s", job.Status), nil)
	}

	m.logger.Info("encode starting",
		logging.String(logging.FieldJobID, id),
		logging.String("codec", string(codec)),
		logging.String("quality", string(quality)),
		logging.Int("frame_rate", frameRate))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPipeline(m.baseCtx, id, codec, quality, frameRate)
	}()

	return m.store.GetByID(ctx, id)
}

// GetStatus fetches a job for status reporting.
func (m *Manager) GetStatus(ctx context.Context, id string) (*queue.Job, error) {
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "status", "load job", "", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "status", "load job", id, nil)
	}
	return job, nil
}

// List returns all jobs ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]*queue.Job, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageFailure, "list", "load jobs", "", err)
	}
	return jobs, nil
}

// Health reports aggregate job counts.
func (m *Manager) Health(ctx context.Context) (queue.HealthSummary, error) {
	return m.store.Health(ctx)
}

// GetArtifact resolves the downloadable output of a completed job and queues
// the job for removal shortly after, on the assumption that a download means
// the caller is done with it.
func (m *Manager) GetArtifact(ctx context.Context, id string) (Artifact, error) {
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrStorageFailure, "artifact", "load job", "", err)
	}
	if job == nil {
		return Artifact{}, services.Wrap(services.ErrNotFound, "artifact", "load job", id, nil)
	}
	if job.Status != queue.StatusCompleted {
		return Artifact{}, services.Wrap(services.ErrNotReady, "artifact", "check status",
			fmt.Sprintf("job is %s", job.Status), nil)
	}

	size, err := fileutil.FileSize(job.OutputPath)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrStorageFailure, "artifact", "stat output", "", err)
	}

	if m.cleanup != nil {
		m.cleanup.Schedule(id, m.cfg.DownloadCleanupDelay())
	}

	ext := strings.TrimPrefix(filepath.Ext(job.OutputPath), ".")
	return Artifact{
		Path:      job.OutputPath,
		FileName:  downloadName(id, ext),
		MediaType: encoder.MediaTypeForExtension(ext),
		Size:      size,
	}, nil
}

// downloadName builds the client-facing artifact name from a short job id.
func downloadName(id, ext string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("transparent_video_%s.%s", short, ext)
}

// sanitizeFrameName normalizes an uploaded file name and keeps only PNG
// frames. Path components are stripped and risky characters replaced so a
// crafted name cannot escape the work directory.
func sanitizeFrameName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	if name == "" || name == "." || name == ".." {
		return ""
	}
	if !strings.EqualFold(filepath.Ext(name), ".png") {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := b.String()
	if strings.TrimSuffix(cleaned, filepath.Ext(cleaned)) == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, ".") {
		return ""
	}
	return cleaned
}
