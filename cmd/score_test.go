package main

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/scorer"
)

func newRecommendCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("limit", 0, "")
	cmd.Flags().Float64("min-score", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestRankOptionsFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    scorer.RankOptions
		wantErr bool
	}{
		{"unset", nil, scorer.RankOptions{}, false},
		{"limit", []string{"--limit", "3"}, scorer.RankOptions{Limit: 3}, false},
		{"limit zero means all", []string{"--limit", "0"}, scorer.RankOptions{Limit: -1}, false},
		{"min score", []string{"--min-score", "55"}, scorer.RankOptions{MinScore: 55}, false},
		{"negative limit", []string{"--limit", "-1"}, scorer.RankOptions{}, true},
		{"min score too high", []string{"--min-score", "120"}, scorer.RankOptions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rankOptionsFromFlags(newRecommendCmd(t, tt.args...))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testScores() []scorer.SiteScore {
	s := scorer.New(scorer.DefaultScorerConfig())
	return []scorer.SiteScore{
		s.ScoreOne(model.Location{
			ID: 16, Name: "Corktown Common Extension",
			Coordinates: model.Coordinates{Lat: 43.654, Lon: -79.353},
			Population:  8700,
			Factors: model.Factors{
				FloodRisk: 0.95, GreenSpaceDensity: 0.65, HeatIsland: 2.2,
				SoilPermeability: 0.70, LandAvailability: 0.85, CommunitySupport: 0.92,
			},
		}),
		s.ScoreOne(model.Location{ID: 9, Name: "King West, Podium", Factors: model.Factors{FloodRisk: 0.3}}),
	}
}

func TestFormatScoresTable(t *testing.T) {
	var buf bytes.Buffer
	formatScoresTable(&buf, testScores())

	out := buf.String()
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "SUITABILITY")
	assert.Contains(t, out, "Corktown Common Extension")
	assert.Contains(t, out, "67.66")
	assert.Contains(t, out, "43.6540")
}

func TestWriteScoresCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScoresCSV(&buf, testScores()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"rank", "id", "name", "latitude", "longitude", "suitability_score"}, records[0][:6])
	assert.Len(t, records[0], 13)
	assert.Equal(t, []string{"1", "16", "Corktown Common Extension", "43.6540", "-79.3530", "67.66"}, records[1][:6])
	assert.Equal(t, "0.950", records[1][6])
	assert.Equal(t, "King West, Podium", records[2][2])
	assert.Equal(t, "7.50", records[2][5])
}
