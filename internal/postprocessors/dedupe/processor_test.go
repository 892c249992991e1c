package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "dedupe", New().Name())
}

func TestProcessor_DropsBlankAndRepeatedText(t *testing.T) {
	in := []domain.Chunk{
		{DocID: "a", Page: 1, Kind: domain.KindText, Content: "Revenue grew."},
		{DocID: "a", Page: 1, Kind: domain.KindText, Content: "  \n\t "},
		{DocID: "a", Page: 1, Kind: domain.KindText, Content: "Revenue   grew."},
		{DocID: "a", Page: 2, Kind: domain.KindText, Content: "Revenue grew."},
		{DocID: "a", Page: 1, Kind: domain.KindTable, Content: "Revenue grew."},
		{DocID: "a", Page: 1, Kind: domain.KindImage, Content: "/img/a.png"},
		{DocID: "a", Page: 1, Kind: domain.KindImage, Content: "/img/a.png"},
	}

	out, err := New().Process(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, out, 5)
	assert.Equal(t, 1, out[0].Page)
	assert.Equal(t, 2, out[1].Page)
	assert.Equal(t, domain.KindTable, out[2].Kind)
	assert.Equal(t, domain.KindImage, out[3].Kind)
	assert.Equal(t, domain.KindImage, out[4].Kind)
	// The input slice is left alone.
	assert.Equal(t, "  \n\t ", in[1].Content)
}

func TestProcessor_Empty(t *testing.T) {
	out, err := New().Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, []domain.Chunk{{DocID: "a", Page: 1, Kind: domain.KindText, Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
