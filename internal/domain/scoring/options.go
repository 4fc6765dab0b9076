package scoring

import "github.com/okian/gradeboard/pkg/logger"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithSuffixes sets the file name allow-list. A full file name is its own
// suffix.
func WithSuffixes(suffixes ...string) Option {
	return func(s *Scorer) {
		s.suffixes = nil
		for _, suffix := range suffixes {
			if suffix != "" {
				s.suffixes = append(s.suffixes, suffix)
			}
		}
	}
}

// WithMemberPolicy sets how members are attributed. Unknown policies are
// ignored.
func WithMemberPolicy(p MemberPolicy) Option {
	return func(s *Scorer) {
		if p.Valid() {
			s.policy = p
		}
	}
}

// WithDefaultLeaderboards overrides the boards that receive sentinel rows.
// An empty list keeps the assignment's defaults.
func WithDefaultLeaderboards(boards ...string) Option {
	return func(s *Scorer) {
		if len(boards) > 0 {
			s.defaults = boards
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}
