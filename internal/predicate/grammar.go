// Grammar of row predicate expressions.

package predicate

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Backtick", Pattern: "`[^`]*`"},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[orGrammar](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)

type orGrammar struct {
	Left  *andGrammar   `parser:"@@"`
	Right []*andGrammar `parser:"( 'or' @@ )*"`
}

type andGrammar struct {
	Left  *notGrammar   `parser:"@@"`
	Right []*notGrammar `parser:"( 'and' @@ )*"`
}

type notGrammar struct {
	Not   *notGrammar        `parser:"  'not' @@"`
	Group *orGrammar         `parser:"| '(' @@ ')'"`
	Cmp   *comparisonGrammar `parser:"| @@"`
}

type comparisonGrammar struct {
	Left  *operandGrammar `parser:"@@"`
	Op    string          `parser:"@Operator"`
	Right *operandGrammar `parser:"@@"`
}

type operandGrammar struct {
	Quoted *string `parser:"  @Backtick"`
	Column *string `parser:"| @Ident"`
	String *string `parser:"| @String"`
	Number *string `parser:"| @Number"`
}
