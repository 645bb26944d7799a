package workload

import (
	"fmt"
	"math/rand"
)

// Generator produces sample analytical queries against a conventional sales
// dataset. The gateway never inspects query text, so anything the target
// engine accepts will do; these mirror the shapes analysts actually send.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

var queryTemplates = []string{
	"EVALUATE VALUES(%s[Region])",
	"EVALUATE TOPN(%d, %s, %s[Amount], DESC)",
	"EVALUATE SUMMARIZE(%s, %s[Region], \"Total\", SUM(%s[Amount]))",
	"EVALUATE FILTER(%s, %s[Amount] > %d)",
	"EVALUATE ROW(\"Rows\", COUNTROWS(%s))",
}

func (g *Generator) NextQuery(table string) string {
	switch g.rnd.Intn(len(queryTemplates)) {
	case 0:
		return fmt.Sprintf(queryTemplates[0], table)
	case 1:
		return fmt.Sprintf(queryTemplates[1], g.rnd.Intn(20)+1, table, table)
	case 2:
		return fmt.Sprintf(queryTemplates[2], table, table, table)
	case 3:
		return fmt.Sprintf(queryTemplates[3], table, table, g.rnd.Intn(500))
	default:
		return fmt.Sprintf(queryTemplates[4], table)
	}
}
