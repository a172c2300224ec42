// Package nlu provides keyword heuristics for classifying citizen messages.
package nlu

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var nluTracer = otel.Tracer("cybersathi.internal.nlu")

// Intent is the coarse purpose of a message.
type Intent string

const (
	IntentStatusCheck     Intent = "status_check"
	IntentAccountUnfreeze Intent = "account_unfreeze"
	IntentNewComplaint    Intent = "new_complaint"
	IntentOther           Intent = "other"
)

// FraudType is the fine-grained fraud family mentioned in free text.
type FraudType string

const (
	FraudUPI        FraudType = "upi_fraud"
	FraudLoanApp    FraudType = "loan_app"
	FraudAPK        FraudType = "apk_fraud"
	FraudCard       FraudType = "card_fraud"
	FraudECommerce  FraudType = "ecommerce_fraud"
	FraudInvestment FraudType = "investment_fraud"
	FraudPhishing   FraudType = "phishing"
	FraudOther      FraudType = "other"
)

type rule[T any] struct {
	label T
	regex *regexp.Regexp
}

func words(alternatives ...string) *regexp.Regexp {
	quoted := make([]string, len(alternatives))
	for i, a := range alternatives {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Rules are evaluated in order; the first match wins.
var intentRules = []rule[Intent]{
	{IntentStatusCheck, words("status", "ack", "acknowledgement", "reference", "track")},
	{IntentAccountUnfreeze, words("unfreeze", "frozen", "freeze", "unlock")},
	{IntentNewComplaint, words("fraud", "scam", "hacked", "transaction", "upi", "loan", "card", "apk", "fake")},
}

var fraudRules = []rule[FraudType]{
	{FraudUPI, words("upi", "imps", "neft", "rtgs", "inb")},
	{FraudLoanApp, words("loan app", "loanapp", "instant loan")},
	{FraudAPK, words("apk", "downloaded app", "install from link")},
	{FraudCard, words("debit card", "credit card", "card")},
	{FraudECommerce, words("amazon", "flipkart", "ecommerce", "e-commerce")},
	{FraudInvestment, words("investment", "trading", "ipo", "crypto")},
	{FraudPhishing, words("phish", "phishing", "fake website", "website")},
}

func firstMatch[T any](rules []rule[T], text string, fallback T) T {
	for _, r := range rules {
		if r.regex.MatchString(text) {
			return r.label
		}
	}
	return fallback
}

// DetectIntent classifies text into a coarse intent.
func DetectIntent(text string) Intent {
	return firstMatch(intentRules, text, IntentOther)
}

// DetectFraudType names the fraud family mentioned in text.
func DetectFraudType(text string) FraudType {
	return firstMatch(fraudRules, text, FraudOther)
}

// EmotionClassifier labels the emotional tone of a message.
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) string
}

// Analysis is the combined classification of one message.
type Analysis struct {
	Intent    Intent
	FraudType FraudType
	Emotion   string
}

// Analyzer runs all heuristics over a message.
type Analyzer struct {
	emotions EmotionClassifier
}

// NewAnalyzer returns an analyzer using emotions, or the lexicon classifier when nil.
func NewAnalyzer(emotions EmotionClassifier) *Analyzer {
	if emotions == nil {
		emotions = NewLexiconClassifier()
	}
	return &Analyzer{emotions: emotions}
}

// Analyze classifies text.
func (a *Analyzer) Analyze(ctx context.Context, text string) Analysis {
	ctx, span := nluTracer.Start(ctx, "nlu.analyze")
	defer span.End()

	out := Analysis{
		Intent:    DetectIntent(text),
		FraudType: DetectFraudType(text),
		Emotion:   a.emotions.Classify(ctx, text),
	}
	span.SetAttributes(
		attribute.String("cybersathi.intent", string(out.Intent)),
		attribute.String("cybersathi.emotion", out.Emotion),
	)
	return out
}
