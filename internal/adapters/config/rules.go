package config

import (
	"bytes"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/rule"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

// YAML file shape for the watch rules.

type rulesFile struct {
	Global globalYAML `yaml:"global"`
	Rules  []ruleYAML `yaml:"rules"`
}

type globalYAML struct {
	Blocklist          []string `yaml:"blocklist"`
	SellerBlocklist    []string `yaml:"seller_blocklist"`
	ConditionBlocklist []int64  `yaml:"condition_blocklist"`
}

type ruleYAML struct {
	Name              string        `yaml:"name"`
	Categories        []int64       `yaml:"categories"`
	Channel           string        `yaml:"channel"`
	Keywords          []keywordYAML `yaml:"keywords"`
	Exclude           []string      `yaml:"exclude"`
	BlocklistOverride []string      `yaml:"blocklist_override"`
}

type keywordYAML struct {
	Pattern      string      `yaml:"pattern"`
	Label        string      `yaml:"label"`
	MinPrice     *float64    `yaml:"min_price"`
	MaxPrice     *float64    `yaml:"max_price"`
	TargetPrice  *float64    `yaml:"target_price"`
	DealRanges   *rangesYAML `yaml:"deal_ranges"`
	DeriveRanges bool        `yaml:"derive_ranges"`
}

type rangesYAML struct {
	Fire  rangeYAML `yaml:"fire"`
	Great rangeYAML `yaml:"great"`
	Good  rangeYAML `yaml:"good"`
	Ok    rangeYAML `yaml:"ok"`
}

type rangeYAML struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// money converts an optional YAML amount to an exact decimal
func money(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// LoadRules reads and validates the watch-rules file. Pattern compilation
// never fails; a regex that does not compile is demoted to a literal match
// with a warning.
func LoadRules(path string, includeShippingInPriceFilter bool) (*rule.Set, error) {
	log := logger.Get().With("component", "rules_loader")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read rules file %s", path)
	}

	var file rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRules, "parse %s: %v", path, err)
	}

	if len(file.Rules) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRules, "%s defines no rules", path)
	}

	set := &rule.Set{
		Globals: rule.Globals{
			Blocklist:                    compileWarned(log, "global blocklist", file.Global.Blocklist),
			SellerBlocklist:              compileWarned(log, "seller blocklist", file.Global.SellerBlocklist),
			ConditionBlocklist:           file.Global.ConditionBlocklist,
			IncludeShippingInPriceFilter: includeShippingInPriceFilter,
		},
	}

	names := make(map[string]struct{}, len(file.Rules))
	for i := range file.Rules {
		r, err := buildRule(log, &file.Rules[i])
		if err != nil {
			return nil, err
		}
		if _, dup := names[r.Name]; dup {
			return nil, errors.Wrapf(errors.ErrInvalidRules, "duplicate rule name %q", r.Name)
		}
		names[r.Name] = struct{}{}
		set.Rules = append(set.Rules, r)
	}

	return set, nil
}

func buildRule(log *logger.Logger, y *ruleYAML) (*rule.WatchRule, error) {
	if y.Name == "" {
		return nil, errors.Wrap(errors.ErrInvalidRules, "rule without a name")
	}
	if len(y.Categories) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRules, "rule %q has no categories", y.Name)
	}
	if len(y.Keywords) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRules, "rule %q has no keywords", y.Name)
	}

	r := &rule.WatchRule{
		Name:              y.Name,
		Categories:        y.Categories,
		Channel:           y.Channel,
		Exclude:           compileWarned(log, y.Name+" exclude", y.Exclude),
		BlocklistOverride: compileWarned(log, y.Name+" blocklist_override", y.BlocklistOverride),
	}

	for i := range y.Keywords {
		kw, err := buildKeyword(log, y.Name, &y.Keywords[i])
		if err != nil {
			return nil, err
		}
		r.Keywords = append(r.Keywords, kw)
	}
	return r, nil
}

func buildKeyword(log *logger.Logger, ruleName string, y *keywordYAML) (rule.KeywordRule, error) {
	if y.Pattern == "" {
		return rule.KeywordRule{}, errors.Wrapf(errors.ErrInvalidRules, "rule %q has a keyword without a pattern", ruleName)
	}
	if y.MinPrice != nil && y.MaxPrice != nil && *y.MinPrice > *y.MaxPrice {
		return rule.KeywordRule{}, errors.Wrapf(errors.ErrInvalidRules,
			"rule %q keyword %q: min price above max price", ruleName, y.Pattern)
	}

	kw := rule.KeywordRule{
		Pattern:     compileOne(log, ruleName, y.Pattern),
		Label:       y.Label,
		MinPrice:    money(y.MinPrice),
		MaxPrice:    money(y.MaxPrice),
		TargetPrice: money(y.TargetPrice),
	}

	switch {
	case y.DealRanges != nil:
		kw.Ranges = &deal.Ranges{
			Fire:  deal.Range{Start: decimal.NewFromFloat(y.DealRanges.Fire.Start), End: decimal.NewFromFloat(y.DealRanges.Fire.End)},
			Great: deal.Range{Start: decimal.NewFromFloat(y.DealRanges.Great.Start), End: decimal.NewFromFloat(y.DealRanges.Great.End)},
			Good:  deal.Range{Start: decimal.NewFromFloat(y.DealRanges.Good.Start), End: decimal.NewFromFloat(y.DealRanges.Good.End)},
			Ok:    deal.Range{Start: decimal.NewFromFloat(y.DealRanges.Ok.Start), End: decimal.NewFromFloat(y.DealRanges.Ok.End)},
		}
	case y.DeriveRanges:
		if y.MinPrice == nil || y.TargetPrice == nil {
			return rule.KeywordRule{}, errors.Wrapf(errors.ErrInvalidRules,
				"rule %q keyword %q: derive_ranges needs min_price and target_price", ruleName, y.Pattern)
		}
		ranges, maxPrice, err := deal.DeriveRanges(int64(*y.MinPrice), int64(*y.TargetPrice))
		if err != nil {
			return rule.KeywordRule{}, errors.Wrapf(err, "rule %q keyword %q", ruleName, y.Pattern)
		}
		kw.Ranges = &ranges
		if kw.MaxPrice == nil {
			max := decimal.NewFromInt(maxPrice)
			kw.MaxPrice = &max
		}
	}

	return kw, nil
}

func compileOne(log *logger.Logger, where, raw string) rule.Pattern {
	p := rule.Compile(raw)
	if p.IsFallback() {
		log.Warnw("Regex failed to compile, matching as literal", "rule", where, "pattern", raw)
	}
	return p
}

func compileWarned(log *logger.Logger, where string, raw []string) rule.Patterns {
	ps := rule.CompileAll(raw)
	for _, p := range ps {
		if p.IsFallback() {
			log.Warnw("Regex failed to compile, matching as literal", "list", where, "pattern", p.String())
		}
	}
	return ps
}
