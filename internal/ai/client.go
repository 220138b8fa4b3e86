// Package ai wraps the generative backends: Veo video generation through the
// genai SDK and story text generation through genkit.
package ai

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	genkitai "github.com/firebase/genkit/go/ai"
	genkitapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"story-cinema-pipeline/internal/config"
)

// ReferenceImage seeds a text-anchored request with a character's visual
// identity.
type ReferenceImage struct {
	ID       string
	Data     []byte
	MIMEType string
}

// Request is one generation attempt. AnchorImage and ReferenceImages are
// mutually exclusive: an anchored-from-image request lets the anchor alone
// define visual identity.
type Request struct {
	Prompt          string
	AspectRatio     string
	DurationSeconds int32
	NegativePrompt  string
	ReferenceImages []ReferenceImage
	AnchorImage     []byte
	AnchorMIMEType  string
}

// Client drives Veo through the long-running-operation protocol and exposes
// genkit text generation for the story generator.
type Client struct {
	genai        *genai.Client
	g            *genkit.Genkit
	useVertex    bool
	model        string
	resolution   string
	pollInterval time.Duration
	opTimeout    time.Duration // 0 = poll until done, however long that takes
	limiter      *rate.Limiter
	log          zerolog.Logger
}

// Option adjusts client behavior.
type Option func(*Client)

// WithPollInterval overrides how often an in-flight operation is checked.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithOperationTimeout bounds the total wait for a single operation. Zero
// keeps the unbounded behavior.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *Client) { c.opTimeout = d }
}

// WithModel overrides the video model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// NewClient builds the genai and genkit clients for the configured backend.
func NewClient(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.GoogleGenAIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.UseVertex {
		cc = &genai.ClientConfig{
			Project:  cfg.ProjectID,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}
	veoClient, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create veo client: %w", err)
	}

	plugins := []genkitapi.Plugin{}
	if cfg.GoogleGenAIKey != "" {
		plugins = append(plugins, &googlegenai.GoogleAI{APIKey: cfg.GoogleGenAIKey})
	}
	if cfg.UseVertex {
		plugins = append(plugins, &googlegenai.VertexAI{ProjectID: cfg.ProjectID, Location: cfg.Location})
	}
	g := genkit.Init(ctx, genkit.WithPlugins(plugins...))

	c := &Client{
		genai:        veoClient,
		g:            g,
		useVertex:    cfg.UseVertex,
		model:        config.VideoModel,
		resolution:   config.Resolution,
		pollInterval: config.PollInterval,
		// At most one submission per poll interval.
		limiter: rate.NewLimiter(rate.Every(config.PollInterval), 1),
		log:     log.With().Str("component", "veo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateStoryText runs a text model through genkit.
func (c *Client) GenerateStoryText(ctx context.Context, model, system, user string) (string, error) {
	return genkit.GenerateText(ctx, c.g,
		genkitai.WithModelName(model),
		genkitai.WithSystem(system),
		genkitai.WithPrompt(user),
	)
}

// Generate submits one video request, polls the operation to completion and
// returns the full clip payload. Failures carry an ErrorKind so the caller's
// retry policy never inspects messages.
func (c *Client) Generate(ctx context.Context, req Request) ([]byte, error) {
	if c.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opTimeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vidConfig := &genai.GenerateVideosConfig{
		AspectRatio:     req.AspectRatio,
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(req.DurationSeconds),
		Resolution:      c.resolution,
		NegativePrompt:  req.NegativePrompt,
	}

	var image *genai.Image
	if len(req.AnchorImage) > 0 {
		mime := req.AnchorMIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		image = &genai.Image{ImageBytes: req.AnchorImage, MIMEType: mime}
	} else {
		for _, ref := range req.ReferenceImages {
			vidConfig.ReferenceImages = append(vidConfig.ReferenceImages, &genai.VideoGenerationReferenceImage{
				Image:         &genai.Image{ImageBytes: ref.Data, MIMEType: ref.MIMEType},
				ReferenceType: genai.VideoGenerationReferenceTypeAsset,
			})
		}
	}

	op, err := c.genai.Models.GenerateVideos(ctx, c.model, req.Prompt, image, vidConfig)
	if err != nil {
		return nil, classify("submit", err)
	}
	c.log.Debug().Str("operation", op.Name).Msg("operation started")

	video, err := c.poll(ctx, op)
	if err != nil {
		return nil, err
	}
	return c.materialize(ctx, video)
}

// poll checks the operation on a fixed interval until it reports done.
func (c *Client) poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.Video, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var err error
			op, err = c.genai.Operations.GetVideosOperation(ctx, op, nil)
			if err != nil {
				return nil, classify("poll", err)
			}
			if !op.Done {
				continue
			}
			if op.Error != nil {
				return nil, classify("operation", fmt.Errorf("operation error: %v", op.Error))
			}
			if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
				op.Response.GeneratedVideos[0].Video == nil {
				return nil, &Error{Kind: KindEmptyResponse, Op: "operation",
					Err: fmt.Errorf("operation done but returned no video")}
			}
			return op.Response.GeneratedVideos[0].Video, nil
		}
	}
}

// materialize makes the clip's full byte payload resident: inline bytes,
// an SDK file download on the Gemini backend, or a GCS copy on Vertex.
func (c *Client) materialize(ctx context.Context, video *genai.Video) ([]byte, error) {
	if len(video.VideoBytes) > 0 {
		return video.VideoBytes, nil
	}

	if !c.useVertex {
		data, err := c.genai.Files.Download(ctx, video, nil)
		if err != nil {
			return nil, classify("download", err)
		}
		if len(data) > 0 {
			return data, nil
		}
		if len(video.VideoBytes) > 0 {
			return video.VideoBytes, nil
		}
		return nil, &Error{Kind: KindEmptyResponse, Op: "download",
			Err: fmt.Errorf("downloaded video is empty")}
	}

	if strings.HasPrefix(video.URI, "gs://") {
		return downloadFromGCS(ctx, video.URI)
	}
	return nil, &Error{Kind: KindEmptyResponse, Op: "download",
		Err: fmt.Errorf("video has neither bytes nor a gs:// uri")}
}

// downloadFromGCS copies a GCS object to a temp file via the gcloud CLI.
func downloadFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("veo-clip-%d.mp4", time.Now().UnixNano()))
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, "gcloud", "storage", "cp", gcsURI, tmp)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, classify("download", fmt.Errorf("gcloud cp failed: %s", string(out)))
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, classify("download", err)
	}
	return data, nil
}
