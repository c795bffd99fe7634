package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckField_SQLInjection(t *testing.T) {
	screener := NewScreener(zap.NewNop())

	finding := screener.CheckField("intent", "' OR 1=1 --")
	require.NotNil(t, finding)
	assert.Equal(t, "intent", finding.Field)
	assert.Equal(t, "sqli", finding.Kind)
	assert.NotEmpty(t, finding.Fingerprint)
}

func TestCheckField_XSS(t *testing.T) {
	screener := NewScreener(zap.NewNop())

	finding := screener.CheckField("feedback", "<script>alert(1)</script>")
	require.NotNil(t, finding)
	assert.Equal(t, "feedback", finding.Field)
	assert.Equal(t, "xss", finding.Kind)
	assert.Empty(t, finding.Fingerprint)
}

func TestCheckField_CleanText(t *testing.T) {
	screener := NewScreener(zap.NewNop())

	for _, value := range []string{
		"",
		"ambient drone with tape hiss",
		"wanted the chorus to feel like it's dissolving",
		"suno v4.5, ableton for the final mix",
	} {
		assert.Nil(t, screener.CheckField("intent", value), "value %q should not be flagged", value)
	}
}

func TestScreenFields_CollectsAllFindings(t *testing.T) {
	screener := NewScreener(zap.NewNop())

	findings := screener.ScreenFields(map[string]string{
		"title":  "Night Drive",
		"intent": "' UNION SELECT password FROM users --",
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "intent", findings[0].Field)
	assert.Equal(t, "sqli", findings[0].Kind)
}

func TestScreenFields_CleanInputIsEmpty(t *testing.T) {
	screener := NewScreener(zap.NewNop())

	findings := screener.ScreenFields(map[string]string{
		"title": "Night Drive",
		"tools": "suno",
	})
	assert.Empty(t, findings)
}
