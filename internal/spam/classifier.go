package spam

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/pkg/cel"
	"contactguard/pkg/models"
)

var defaultKeywords = []string{
	"cryptocurrency", "crypto trading", "bitcoin investment",
	"casino", "gambling", "poker online",
	"viagra", "cialis", "pharmacy",
	"seo service", "backlink", "link building",
	"make money fast", "earn money online", "get rich",
	"nigerian prince", "inheritance", "lottery winner",
	"click here now", "act now", "limited time offer",
	"weight loss", "diet pill",
	"adult content", "xxx", "dating site",
}

var defaultDomains = []string{
	"tempmail.com", "throwaway.email", "10minutemail.com", "guerrillamail.com",
}

var urlPattern = regexp.MustCompile(`(?i)https?://|www\.`)

type Result struct {
	IsSpam bool
	Reason models.ReasonCode
	// Rule is the operator rule name for ReasonCustomRule.
	Rule string
}

type check struct {
	reason models.ReasonCode
	match  func(msg models.ContactMessage) bool
}

// Classifier runs the built-in content heuristics in a fixed order, then any
// operator rules. The first match decides the result.
type Classifier struct {
	keywords []string
	domains  []string
	checks   []check
	rules    []*cel.Rule
	logger   logger.Logger
}

// NewClassifier builds a classifier from cfg. Extra keywords and domains are
// added to the built-in lists. Every rule must compile.
func NewClassifier(cfg config.SpamConfig, log logger.Logger) (*Classifier, error) {
	if log == nil {
		log = logger.NopLogger()
	}

	c := &Classifier{
		keywords: mergeLower(defaultKeywords, cfg.ExtraKeywords),
		domains:  mergeLower(defaultDomains, cfg.ExtraDomains),
		logger:   log,
	}

	c.checks = []check{
		{models.ReasonTooManyURLs, tooManyURLs},
		{models.ReasonSpamKeywords, c.hasKeyword},
		{models.ReasonExcessiveCaps, excessiveCaps},
		{models.ReasonRepeatedChars, repeatedChars},
		{models.ReasonSuspiciousEmailDomain, c.suspiciousDomain},
	}

	if len(cfg.Rules) > 0 {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		for _, r := range cfg.Rules {
			rule, err := evaluator.CompileRule(r.Name, r.Expression)
			if err != nil {
				return nil, fmt.Errorf("failed to compile spam rule: %w", err)
			}
			c.rules = append(c.rules, rule)
		}
	}

	return c, nil
}

func (c *Classifier) Evaluate(ctx context.Context, msg models.ContactMessage) Result {
	for _, chk := range c.checks {
		if chk.match(msg) {
			return Result{IsSpam: true, Reason: chk.reason}
		}
	}

	for _, rule := range c.rules {
		matched, err := rule.Matches(ctx, msg)
		if err != nil {
			c.logger.WarnwCtx(ctx, "Spam rule evaluation failed, skipping rule",
				"rule", rule.Name,
				"error", err,
			)
			continue
		}
		if matched {
			return Result{IsSpam: true, Reason: models.ReasonCustomRule, Rule: rule.Name}
		}
	}

	return Result{}
}

func (c *Classifier) RuleCount() int {
	return len(c.rules)
}

func tooManyURLs(msg models.ContactMessage) bool {
	return len(urlPattern.FindAllStringIndex(msg.Message, -1)) > constants.MaxURLs
}

func (c *Classifier) hasKeyword(msg models.ContactMessage) bool {
	text := strings.ToLower(msg.Name + " " + msg.Email + " " + msg.Subject + " " + msg.Message)
	for _, keyword := range c.keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// excessiveCaps looks at ASCII letters only.
func excessiveCaps(msg models.ContactMessage) bool {
	var letters, upper int
	for i := 0; i < len(msg.Message); i++ {
		b := msg.Message[i]
		switch {
		case b >= 'A' && b <= 'Z':
			upper++
			letters++
		case b >= 'a' && b <= 'z':
			letters++
		}
	}
	if letters < constants.MinCapsLetters {
		return false
	}
	return float64(upper)/float64(letters) > constants.CapsRatioThreshold
}

func repeatedChars(msg models.ContactMessage) bool {
	var prev rune
	run := 0
	for _, r := range msg.Message {
		if isLineTerminator(r) {
			run = 0
			continue
		}
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= constants.MinRepeatRunLength {
			return true
		}
	}
	return false
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

func (c *Classifier) suspiciousDomain(msg models.ContactMessage) bool {
	domain := msg.EmailDomain()
	if domain == "" {
		return false
	}
	for _, d := range c.domains {
		if strings.Contains(domain, d) {
			return true
		}
	}
	return false
}

func mergeLower(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, e := range extra {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
