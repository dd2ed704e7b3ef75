package filter

import (
	"io/fs"
	"os"

	"github.com/jamesainslie/revclean/pkg/revclean/deleter"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// EmitFunc receives survivors when EmitChunks is enabled.
type EmitFunc func(types.Entry) error

// LstatFunc performs the fresh status check for a candidate.
type LstatFunc func(path string) (fs.FileInfo, error)

// settings is the resolved configuration of one Filter.
type settings struct {
	opts    types.Options
	emit    EmitFunc
	deleter deleter.Deleter
	lstat   LstatFunc
}

// Option is a functional option for configuring a Filter.
type Option func(*settings)

func defaultSettings() settings {
	return settings{
		opts:    types.DefaultOptions(),
		deleter: deleter.NewOSDeleter(),
		lstat:   os.Lstat,
	}
}

// WithOptions replaces every cleanup option at once.
// Options applied after it still override individual fields.
func WithOptions(opts types.Options) Option {
	return func(s *settings) {
		s.opts = opts
	}
}

// WithKeepOriginalFiles keeps or drops the manifest's pre-rename paths.
func WithKeepOriginalFiles(keep bool) Option {
	return func(s *settings) {
		s.opts.KeepOriginalFiles = keep
	}
}

// WithKeepRenamedFiles keeps or drops the manifest's post-rename paths.
func WithKeepRenamedFiles(keep bool) Option {
	return func(s *settings) {
		s.opts.KeepRenamedFiles = keep
	}
}

// WithKeepSourceMapFiles keeps <revised>.map for every manifest entry.
func WithKeepSourceMapFiles(keep bool) Option {
	return func(s *settings) {
		s.opts.KeepSourceMapFiles = keep
	}
}

// WithKeepManifestFile keeps or drops the manifest file itself.
func WithKeepManifestFile(keep bool) Option {
	return func(s *settings) {
		s.opts.KeepManifestFile = keep
	}
}

// WithEmitChunks enables forwarding of survivors to the emitter.
func WithEmitChunks(emit bool) Option {
	return func(s *settings) {
		s.opts.EmitChunks = emit
	}
}

// WithEmitter sets the downstream receiver of survivors.
// It is only called when EmitChunks is enabled.
func WithEmitter(fn EmitFunc) Option {
	return func(s *settings) {
		s.emit = fn
	}
}

// WithDeleteOptions sets the options forwarded to the deletion primitive.
func WithDeleteOptions(opts types.DeleteOptions) Option {
	return func(s *settings) {
		s.opts.Delete = opts
	}
}

// WithDeleter replaces the deletion primitive.
func WithDeleter(d deleter.Deleter) Option {
	return func(s *settings) {
		if d != nil {
			s.deleter = d
		}
	}
}

// WithLstat replaces the status check used for candidates.
func WithLstat(fn LstatFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.lstat = fn
		}
	}
}
