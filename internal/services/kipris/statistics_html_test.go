package kipris

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStatisticsPage = `<html><body>
<table id="nav"><tr><td>menu</td></tr></table>
<div class="statis">
<table>
<thead><tr><th>IPC</th><th>출원년도</th><th>공개년도</th><th>등록년도</th></tr></thead>
<tbody>
<tr><td>G06Q</td><td>2020(2)</td><td>2021(1)</td><td></td></tr>
<tr><td>G06T</td><td> 2020(3) </td><td>2022(4)</td><td>2023(1)</td></tr>
</tbody>
</table>
</div>
</body></html>`

func TestParseStatisticsHTML(t *testing.T) {
	aggregates, err := ParseStatisticsHTML(strings.NewReader(testStatisticsPage))
	require.NoError(t, err)

	assert.Equal(t, []int{2020}, aggregates.Application.Years)
	assert.Equal(t, []int{5}, aggregates.Application.Values)
	assert.Equal(t, []int{2021, 2022}, aggregates.Publication.Years)
	assert.Equal(t, []int{1, 4}, aggregates.Publication.Values)
	assert.Equal(t, []int{1}, aggregates.Registration.Values)
}

func TestParseStatisticsHTML_NoTable(t *testing.T) {
	_, err := ParseStatisticsHTML(strings.NewReader(`<html><body><table><tr><td>x</td></tr></table></body></html>`))
	assert.ErrorContains(t, err, "no statistics table")
}
