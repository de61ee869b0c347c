package usecase

import (
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
)

const (
	RuleNotNull    = "not_null"
	RuleLength     = "length"
	RuleExpiration = "expiration"
	RuleMatch      = "match"
)

// Rule is one predicate over a validation context. Check returns false to
// reject; an error aborts the whole evaluation.
type Rule struct {
	Name  string
	Check func(vc entity.ValidationContext) (bool, error)
}

// RuleChain accepts a context only when every rule accepts it. Rules run in
// order and stop at the first rejection.
type RuleChain []Rule

// Evaluate returns whether the chain accepts vc and, when it does not, the
// name of the rule that rejected.
func (rc RuleChain) Evaluate(vc entity.ValidationContext) (ok bool, rejectedBy string, err error) {
	for _, rule := range rc {
		ok, err := rule.Check(vc)
		if err != nil {
			return false, rule.Name, err
		}
		if !ok {
			return false, rule.Name, nil
		}
	}
	return true, "", nil
}

// NewRuleChain returns the standard chain: not-null, length, expiration, match.
func NewRuleChain(length int, expiration time.Duration, clk clock.Clocker, engine otpcrypto.Engine) RuleChain {
	return RuleChain{
		NotNullRule(),
		LengthRule(length),
		ExpirationRule(expiration, clk),
		MatchRule(engine),
	}
}

func NotNullRule() Rule {
	return Rule{Name: RuleNotNull, Check: func(vc entity.ValidationContext) (bool, error) {
		return vc.Identity != "" && vc.ProvidedCode != "", nil
	}}
}

func LengthRule(length int) Rule {
	return Rule{Name: RuleLength, Check: func(vc entity.ValidationContext) (bool, error) {
		return len(vc.ProvidedCode) == length, nil
	}}
}

// ExpirationRule rejects once now is strictly after createdAt + window.
func ExpirationRule(window time.Duration, clk clock.Clocker) Rule {
	return Rule{Name: RuleExpiration, Check: func(vc entity.ValidationContext) (bool, error) {
		return !clk.Now().After(vc.CreatedAt.Add(window)), nil
	}}
}

// MatchRule encrypts the provided code and compares it with the stored
// ciphertext. Both sides are hashed first so the comparison runs in constant
// time whatever their lengths.
func MatchRule(engine otpcrypto.Engine) Rule {
	return Rule{Name: RuleMatch, Check: func(vc entity.ValidationContext) (bool, error) {
		provided, err := engine.Encrypt(vc.ProvidedCode)
		if err != nil {
			return false, err
		}

		a := sha256.Sum256([]byte(provided))
		b := sha256.Sum256([]byte(vc.Ciphertext))
		return subtle.ConstantTimeCompare(a[:], b[:]) == 1, nil
	}}
}
