package splice

import (
	"context"

	"resplice/internal/logging"
	"resplice/internal/media"
)

// Muxer embeds a subtitle file into a finished video.
type Muxer interface {
	MuxSubtitles(ctx context.Context, req media.MuxRequest) error
}

// Embed muxes req.Subtitles into the spliced video at req.Video, writing
// req.Output, and publishes the result at dest. On success art.Path is dest.
func (e *Executor) Embed(ctx context.Context, m Muxer, req media.MuxRequest, art *Artifact, dest string) error {
	logger := logging.WithContext(ctx, e.logger)
	if err := e.step(ctx, e.opts.ConcatTimeout, -1, "mux", func(opCtx context.Context) error {
		return m.MuxSubtitles(opCtx, req)
	}); err != nil {
		return err
	}
	if err := e.step(ctx, e.opts.ConcatTimeout, -1, "publish", func(opCtx context.Context) error {
		return Publish(opCtx, req.Output, dest)
	}); err != nil {
		return err
	}
	art.Path = dest
	logger.Info("subtitles embedded",
		logging.String("path", dest),
		logging.String("embed", string(req.Embed)),
	)
	return nil
}
