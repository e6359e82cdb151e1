package yomikae

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator knows the provision keys of a single statute.
type stubValidator struct {
	lawID string
	keys  map[string]bool
	calls int
}

func newStubValidator(lawID string, keys ...string) *stubValidator {
	v := &stubValidator{lawID: lawID, keys: make(map[string]bool)}
	for _, k := range keys {
		v.keys[k] = true
	}
	return v
}

func (v *stubValidator) Exists(_ context.Context, lawID string, ref Reference) (bool, error) {
	v.calls++
	if lawID != v.lawID || ref.LawName != "" {
		return false, ErrUnknownLaw
	}
	return v.keys[ref.Key()], nil
}

var testLocation = Location{LawID: "329AC0000000089", Article: "20", Paragraph: "1", Index: 3}

func parse(t *testing.T, p *Parser, text string) Outcome {
	t.Helper()
	out, err := p.Parse(context.Background(), ClauseCandidate{Location: testLocation, Text: text})
	require.NoError(t, err)
	return out
}

func requireResult(t *testing.T, out Outcome) *ClauseResult {
	t.Helper()
	if !out.OK() {
		require.FailNow(t, "expected a result", "got failure %+v", out.Failure)
	}
	return out.Result
}

func requireFailure(t *testing.T, out Outcome, reason Reason) *ClauseFailure {
	t.Helper()
	require.Nil(t, out.Result)
	require.NotNil(t, out.Failure)
	assert.Equal(t, reason, out.Failure.Reason)
	assert.Equal(t, testLocation, out.Failure.Location)
	return out.Failure
}

func TestParseSinglePair(t *testing.T) {
	p := NewParser(nil)
	res := requireResult(t, parse(t, p, "「A」とあるのは「B」と読み替える。"))

	require.Len(t, res.Pairs, 1)
	pair := res.Pairs[0]
	assert.Equal(t, Span{Text: "A", Start: len("「"), End: len("「A")}, pair.Original)
	assert.Equal(t, "B", pair.Replacement.Text)
	assert.Nil(t, pair.Scope)
	assert.False(t, pair.Ellipsis)
	assert.Empty(t, pair.Flags)
	assert.Empty(t, res.Flags)
	assert.Equal(t, testLocation, res.Location)
}

func TestParseUnterminatedQuote(t *testing.T) {
	p := NewParser(nil)
	f := requireFailure(t, parse(t, p, "「A とあるのは「B」と"), ReasonUnterminatedQuote)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "「A とあるのは「B」と", f.Excerpt)
}

func TestParseEnumeratedList(t *testing.T) {
	p := NewParser(nil)
	res := requireResult(t, parse(t, p, "「A」、「C」とあるのは、それぞれ「B」、「D」と読み替える。"))

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, "A", res.Pairs[0].Original.Text)
	assert.Equal(t, "B", res.Pairs[0].Replacement.Text)
	assert.Equal(t, "C", res.Pairs[1].Original.Text)
	assert.Equal(t, "D", res.Pairs[1].Replacement.Text)
	assert.False(t, res.Pairs[0].Ellipsis)
	assert.True(t, res.Pairs[1].Ellipsis)
	assert.Equal(t, res.Pairs[0].Group, res.Pairs[1].Group)
}

func TestParseScopeValidation(t *testing.T) {
	text := "第五条中「A」とあるのは「B」と読み替える。"

	t.Run("exists", func(t *testing.T) {
		p := NewParser(newStubValidator(testLocation.LawID, "article:5"))
		res := requireResult(t, parse(t, p, text))
		require.Len(t, res.Pairs, 1)

		scope := res.Pairs[0].Scope
		require.NotNil(t, scope)
		assert.Equal(t, "第五条", scope.Text)
		assert.Equal(t, ScopeExplicit, scope.Origin)
		assert.Equal(t, ScopeResolved, scope.Status)
		assert.Equal(t, []Reference{{Article: "5"}}, scope.References)
		assert.Equal(t, 0, scope.Start)
		assert.Empty(t, res.Pairs[0].Flags)
		assert.Empty(t, res.Flags)
	})

	t.Run("dangling", func(t *testing.T) {
		p := NewParser(newStubValidator(testLocation.LawID, "article:6"))
		res := requireResult(t, parse(t, p, text))
		require.Len(t, res.Pairs, 1)
		assert.Equal(t, ScopeDangling, res.Pairs[0].Scope.Status)
		assert.Equal(t, []Flag{FlagDanglingScope}, res.Pairs[0].Flags)
		assert.Equal(t, []Flag{FlagDanglingScope}, res.Flags)
	})

	t.Run("no validator", func(t *testing.T) {
		res := requireResult(t, parse(t, NewParser(nil), text))
		assert.Equal(t, ScopeUnchecked, res.Pairs[0].Scope.Status)
		assert.Empty(t, res.Flags)
	})
}

func TestParseDeterministic(t *testing.T) {
	p := NewParser(newStubValidator(testLocation.LawID, "article:5"))
	text := "第五条中「A」とあるのは「B」と、「C」とあるのは「D」と読み替える。"
	first := parse(t, p, text)
	second := parse(t, p, text)
	assert.Equal(t, first, second)
}

func TestParseScopeInheritance(t *testing.T) {
	p := NewParser(newStubValidator(testLocation.LawID, "article:5"))
	res := requireResult(t, parse(t, p, "第五条中「A」とあるのは「B」と、「C」とあるのは「D」と読み替える。"))

	require.Len(t, res.Pairs, 2)
	first, second := res.Pairs[0].Scope, res.Pairs[1].Scope
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, ScopeInherited, second.Origin)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.References, second.References)
	assert.Equal(t, first.Status, second.Status)
	assert.NotEqual(t, res.Pairs[0].Group, res.Pairs[1].Group)
	assert.False(t, res.Pairs[1].Ellipsis)
}

func TestParseInheritedScopeSharesFlags(t *testing.T) {
	p := NewParser(newStubValidator(testLocation.LawID))
	res := requireResult(t, parse(t, p, "第五条中「A」とあるのは「B」と、「C」とあるのは「D」と読み替える。"))

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, []Flag{FlagDanglingScope}, res.Pairs[0].Flags)
	assert.Equal(t, []Flag{FlagDanglingScope}, res.Pairs[1].Flags)
}

func TestParseEmpty(t *testing.T) {
	p := NewParser(nil)
	for _, text := range []string{"", "   ", "　\n"} {
		requireFailure(t, parse(t, p, text), ReasonNoPairsFound)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason Reason
	}{
		{name: "no quotes", text: "前条の規定は、この場合について準用する。", reason: ReasonNoPairsFound},
		{name: "only defined terms", text: "法律（以下「法」という。）に定める。", reason: ReasonNoPairsFound},
		{name: "original without replacement", text: "第五条中「A」とあるのは", reason: ReasonMissingReadAsMarker},
		{name: "dangling とあり", text: "「A」とあり、「C」と読み替える。", reason: ReasonMissingReadAsMarker},
		{name: "quote after group boundary", text: "「A」とあるのは「B」と、「C」と読み替える。", reason: ReasonMissingReadAsMarker},
		{name: "scoped quote after group boundary", text: "「A」とあるのは「B」と、第五条中「C」と読み替える。", reason: ReasonMissingReadAsMarker},
		{name: "respectively with one replacement", text: "「A」、「C」とあるのは、それぞれ「B」と読み替える。", reason: ReasonUnbalancedList},
		{name: "more replacements than originals", text: "「A」とあるのは「B」、「C」と読み替える。", reason: ReasonUnbalancedList},
		{name: "scope inside enumerated list", text: "「A」、第五条中「C」とあるのは、それぞれ「B」、「D」と読み替える。", reason: ReasonUnbalancedList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireFailure(t, parse(t, NewParser(nil), tt.text), tt.reason)
		})
	}
}

func TestParseExcerptIsCapped(t *testing.T) {
	long := "「"
	for i := 0; i < 100; i++ {
		long += "あ"
	}
	f := requireFailure(t, parse(t, NewParser(nil), long), ReasonUnterminatedQuote)
	assert.Equal(t, maxExcerptRunes+1, len([]rune(f.Excerpt)))
	assert.Equal(t, "…", string([]rune(f.Excerpt)[maxExcerptRunes]))
}

func TestParseUnmatchedClosingBracket(t *testing.T) {
	res := requireResult(t, parse(t, NewParser(nil), "号）」「A」とあるのは「B」と読み替える。"))
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, []Flag{FlagUnmatchedClosingBracket}, res.Flags)
}

func TestParseSharedReplacement(t *testing.T) {
	v := newStubValidator(testLocation.LawID, "article:20/paragraph:1", "article:20/paragraph:1/item:2")
	text := "この場合において、同項中「それぞれ同項各号に定める者」とあり、及び同項第二号中「その者」とあるのは、「都道府県の教育委員会」と読み替えるものとする。"
	res := requireResult(t, parse(t, NewParser(v), text))

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, "それぞれ同項各号に定める者", res.Pairs[0].Original.Text)
	assert.Equal(t, "その者", res.Pairs[1].Original.Text)
	for _, pair := range res.Pairs {
		assert.Equal(t, "都道府県の教育委員会", pair.Replacement.Text)
		assert.Equal(t, 0, pair.Group)
		require.NotNil(t, pair.Scope)
		assert.Equal(t, ScopeExplicit, pair.Scope.Origin)
		assert.Equal(t, ScopeResolved, pair.Scope.Status)
	}
	assert.Equal(t, "同項", res.Pairs[0].Scope.Text)
	assert.Equal(t, "同項第二号", res.Pairs[1].Scope.Text)
	assert.Equal(t, []Reference{{Article: "20", Paragraph: "1", Item: "2"}}, res.Pairs[1].Scope.References)
	assert.True(t, res.Pairs[1].Ellipsis)
}

func TestParseIgnoresConditionalPreamble(t *testing.T) {
	text := "この場合において、第八百五十一条第四号中「被後見人を代表する」とあるのは、「被保佐人を代表し、又は被保佐人がこれをすることに同意する」と読み替えるものとする。"
	res := requireResult(t, parse(t, NewParser(nil), text))

	require.Len(t, res.Pairs, 1)
	pair := res.Pairs[0]
	assert.Equal(t, "被後見人を代表する", pair.Original.Text)
	assert.Equal(t, "被保佐人を代表し、又は被保佐人がこれをすることに同意する", pair.Replacement.Text)
	require.NotNil(t, pair.Scope)
	assert.Equal(t, "第八百五十一条第四号", pair.Scope.Text)
	assert.Equal(t, []Reference{{Article: "851", Paragraph: "1", Item: "4"}}, pair.Scope.References)
}

func TestParseBareCoordinator(t *testing.T) {
	text := "この場合において、同条中「第六十九条」とあるのは「第二十条」と「子ども・子育て拠出金」とあるのは「子ども手当拠出金」と読み替えるものとする。"
	res := requireResult(t, parse(t, NewParser(nil), text))

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, "子ども・子育て拠出金", res.Pairs[1].Original.Text)
	assert.Equal(t, ScopeInherited, res.Pairs[1].Scope.Origin)
	assert.Equal(t, []Reference{{Article: "20"}}, res.Pairs[1].Scope.References)
	assert.Equal(t, 1, res.Pairs[1].Group)
}

func TestParseSameArticleAnchoredOnPrecedingMention(t *testing.T) {
	text := "第百十三条の三十八の規定は、調査員養成研修について準用する。この場合において、" +
		"同条第一項中「法第六十九条の三十三第一項」とあるのは「令第三十七条の七第一項」と、" +
		"同項第五号中「前条」とあるのは「第百十三条の三十七」と、" +
		"同条第二項中「令第三十五条の十六第一項第二号イ」とあるのは「令第三十七条の七第四項第三号イ」と、" +
		"同条第四項中「令第三十五条の十六第一項第二号ハ」とあるのは「令第三十七条の七第四項第三号ハ」と" +
		"「実務研修受講試験の合格年月日並びに研修の受講の開始年月日」とあるのは「研修の受講の開始年月日」と読み替えるものとする。"
	res := requireResult(t, parse(t, NewParser(nil), text))

	require.Len(t, res.Pairs, 5)
	want := [][]Reference{
		{{Article: "113_38", Paragraph: "1"}},
		{{Article: "113_38", Paragraph: "1", Item: "5"}},
		{{Article: "113_38", Paragraph: "2"}},
		{{Article: "113_38", Paragraph: "4"}},
		{{Article: "113_38", Paragraph: "4"}},
	}
	for i, pair := range res.Pairs {
		require.NotNil(t, pair.Scope, "pair %d", i)
		assert.Equal(t, want[i], pair.Scope.References, "pair %d", i)
		assert.Equal(t, i, pair.Group)
	}
	assert.Equal(t, ScopeInherited, res.Pairs[4].Scope.Origin)
}

func TestParseNestedQuotesAndForeignStatute(t *testing.T) {
	text := "この場合において、徴収法施行規則第二十七条及び第二十八条中「保険関係が成立した」とあるのは「法律（以下「整備法」という。）第十八条の規定による保険給付が行なわれることとなつた」と、" +
		"「保険関係成立の日」とあるのは「当該保険給付が行なわれることとなつた日」と、" +
		"徴収法施行規則第三十二条中「第二十七条から前条まで」とあるのは「第二十七条から第三十条まで」と読み替えるものとする。"
	v := newStubValidator(testLocation.LawID)
	res := requireResult(t, parse(t, NewParser(v), text))

	require.Len(t, res.Pairs, 3)
	assert.Equal(t, "法律（以下「整備法」という。）第十八条の規定による保険給付が行なわれることとなつた", res.Pairs[0].Replacement.Text)
	assert.Equal(t, []Reference{
		{LawName: "徴収法施行規則", Article: "27"},
		{LawName: "徴収法施行規則", Article: "28"},
	}, res.Pairs[0].Scope.References)
	assert.Equal(t, ScopeUnverified, res.Pairs[0].Scope.Status)
	assert.Equal(t, ScopeInherited, res.Pairs[1].Scope.Origin)
	assert.Equal(t, "徴収法施行規則第三十二条", res.Pairs[2].Scope.Text)
	assert.Equal(t, []Flag{FlagUnverifiedScope}, res.Flags)
}

func TestParseUnparsedScope(t *testing.T) {
	res := requireResult(t, parse(t, NewParser(nil), "当該期間中「A」とあるのは「B」と読み替える。"))
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, ScopeUnparsed, res.Pairs[0].Scope.Status)
	assert.Equal(t, []Flag{FlagUnparsedScope}, res.Flags)
}

func TestParseValidatorError(t *testing.T) {
	boom := errors.New("index unavailable")
	p := NewParser(ValidatorFunc(func(context.Context, string, Reference) (bool, error) {
		return false, boom
	}))
	_, err := p.Parse(context.Background(), ClauseCandidate{Location: testLocation, Text: "第五条中「A」とあるのは「B」と"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestParseScopeListAcrossCommas(t *testing.T) {
	res := requireResult(t, parse(t, NewParser(nil), "この場合において、第十条、第十二条及び第十五条中「A」とあるのは「B」と読み替える。"))
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "第十条、第十二条及び第十五条", res.Pairs[0].Scope.Text)
	assert.Len(t, res.Pairs[0].Scope.References, 3)
}
