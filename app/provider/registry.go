package provider

import (
	"errors"
	"sort"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

var tagAliases = map[string]string{
	"tinkoff":         TagTinkoff,
	"bank-card":       TagTinkoff,
	"yoomoney-wallet": TagYooMoney,
	"yoomoney":        TagYooMoney,
	"wallet-transfer": TagYooMoney,
	"yookassa":        TagYooMoney,
	"telegram":        TagTelegram,
	"in-chat":         TagTelegram,
}

// NormalizeTag resolves accepted aliases to the canonical provider tag.
// Unknown values are returned lowercased so the registry can reject them.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if canonical, ok := tagAliases[tag]; ok {
		return canonical
	}
	return tag
}

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider, len(providers))
	for _, p := range providers {
		items[p.Tag()] = p
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(tag string) (Provider, error) {
	provider, ok := r.providers[NormalizeTag(tag)]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}

func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.providers))
	for tag := range r.providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
