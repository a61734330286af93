package fallback

import (
	"strings"

	"github.com/docregen/fontresolve/core/font"
	"github.com/npillmayer/schuko"
)

// Chain is an ordered sequence of candidate font names, explicit priority
// first. Every chain used for resolution ends in the baseline font.
type Chain []string

// Terminated returns the chain with the baseline font guaranteed to be its
// last element.
func (c Chain) Terminated() Chain {
	baseline := font.NormalizeFontname(font.BaselineFontName)
	for _, name := range c {
		if font.NormalizeFontname(name) == baseline {
			return c
		}
	}
	t := make(Chain, len(c), len(c)+1)
	copy(t, c)
	return append(t, font.BaselineFontName)
}

// ChainFromConfig reads the ordered fallback chain from configuration key
// 'fallback-chain' (comma-separated names). The result is terminated.
func ChainFromConfig(conf schuko.Configuration) Chain {
	var chain Chain
	for _, name := range strings.Split(conf.GetString("fallback-chain"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			chain = append(chain, name)
		}
	}
	return chain.Terminated()
}
