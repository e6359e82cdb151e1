package yomikae

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTable(t *testing.T, p *Parser, rows [][]string) Outcome {
	t.Helper()
	out, err := p.ParseTable(context.Background(), TableCandidate{Location: testLocation, Rows: rows})
	require.NoError(t, err)
	return out
}

func TestParseTableThreeColumns(t *testing.T) {
	v := newStubValidator(testLocation.LawID, "article:5/paragraph:1", "article:7")
	rows := [][]string{
		{"読み替える規定", "読み替えられる字句", "読み替える字句"},
		{"第五条第一項", "被保険者", "組合員"},
		{"", "保険料", "掛金"},
		{"第七条", "厚生労働大臣", "財務大臣"},
	}
	res := requireResult(t, parseTable(t, NewParser(v), rows))

	require.Len(t, res.Pairs, 3)
	assert.Equal(t, Span{Text: "被保険者"}, res.Pairs[0].Original)
	assert.Equal(t, Span{Text: "組合員"}, res.Pairs[0].Replacement)
	assert.Equal(t, -1, res.Pairs[0].Scope.Start)
	assert.Equal(t, ScopeResolved, res.Pairs[0].Scope.Status)

	assert.Equal(t, ScopeInherited, res.Pairs[1].Scope.Origin)
	assert.Equal(t, "第五条第一項", res.Pairs[1].Scope.Text)
	assert.Equal(t, res.Pairs[0].Scope.References, res.Pairs[1].Scope.References)

	assert.Equal(t, []Reference{{Article: "7"}}, res.Pairs[2].Scope.References)
	for i, pair := range res.Pairs {
		assert.Equal(t, i, pair.Group)
	}
	assert.Empty(t, res.Flags)
}

func TestParseTableTwoColumns(t *testing.T) {
	rows := [][]string{
		{"読み替えられる字句", "読み替える字句"},
		{" 被保険者 ", "組合員"},
	}
	res := requireResult(t, parseTable(t, NewParser(nil), rows))
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "被保険者", res.Pairs[0].Original.Text)
	assert.Nil(t, res.Pairs[0].Scope)
}

func TestParseTableFailures(t *testing.T) {
	f := requireFailure(t, parseTable(t, NewParser(nil), [][]string{
		{"第五条", "被保険者", "組合員", "余分"},
	}), ReasonMalformedTable)
	assert.Equal(t, 0, f.Offset)
	assert.Contains(t, f.Excerpt, "余分")

	requireFailure(t, parseTable(t, NewParser(nil), [][]string{
		{"第五条", "", "組合員"},
	}), ReasonMalformedTable)

	requireFailure(t, parseTable(t, NewParser(nil), [][]string{
		{"読み替える規定", "読み替えられる字句", "読み替える字句"},
	}), ReasonNoPairsFound)

	requireFailure(t, parseTable(t, NewParser(nil), nil), ReasonNoPairsFound)
}
