package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/llm"
)

// fakeGenerator returns a canned reply and records requests
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	requests []*llm.ContentRequest
	block    chan struct{}
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, request *llm.ContentRequest) (*llm.ContentResponse, error) {
	g.mu.Lock()
	g.calls++
	g.requests = append(g.requests, request)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ContentResponse{Text: g.reply, Provider: llm.ProviderGemini, Model: "fake-model"}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newService(gen llm.Generator) *Service {
	config := common.NewDefaultConfig()
	return NewService(gen, config.Analysis, arbor.NewLogger())
}

func textRecord(name, content string) models.FileRecord {
	return models.FileRecord{
		ID:        "file_" + name,
		Name:      name,
		Size:      int64(len(content)),
		MediaType: "text/plain",
		Preview:   models.PreviewText,
		Content:   content,
	}
}

func TestAnalyze_EmptySelectionMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T"}`}
	svc := newService(gen)

	_, err := svc.Analyze(context.Background(), Request{})
	require.ErrorIs(t, err, ErrNothingSelected)
	assert.Equal(t, 0, gen.callCount())
}

func TestAnalyze_MissingCredentials(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("gemini: %w", llm.ErrMissingAPIKey)}
	svc := newService(gen)

	_, err := svc.Analyze(context.Background(), Request{Files: []models.FileRecord{textRecord("a.txt", "x")}})
	require.ErrorIs(t, err, ErrCredentialsNotConfigured)
	assert.False(t, errors.Is(err, ErrAnalysisFailed))
}

func TestAnalyze_MissingCredentialsWithRealProvider(t *testing.T) {
	for _, name := range []string{"MARKETLENS_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
		t.Setenv(name, "")
	}
	config := common.NewDefaultConfig()
	factory := llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, nil, arbor.NewLogger())
	svc := NewService(factory, config.Analysis, arbor.NewLogger())

	_, err := svc.Analyze(context.Background(), Request{Files: []models.FileRecord{textRecord("a.txt", "x")}})
	require.ErrorIs(t, err, ErrCredentialsNotConfigured)
}

func TestAnalyze_ProviderFailure(t *testing.T) {
	cause := errors.New("connection reset")
	gen := &fakeGenerator{err: cause}
	svc := newService(gen)

	_, err := svc.Analyze(context.Background(), Request{Files: []models.FileRecord{textRecord("a.txt", "x")}})
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrCredentialsNotConfigured))
}

func TestAnalyze_MinimalReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T","summary":"S"}`}
	svc := newService(gen)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	report, err := svc.Analyze(context.Background(), Request{
		Files: []models.FileRecord{textRecord("report.txt", "Q3 outlook positive")},
	})
	require.NoError(t, err)

	assert.Equal(t, "T", report.Result.Title)
	assert.Equal(t, "S", report.Result.Summary)
	assert.NotNil(t, report.Result.KeyInsights)
	assert.Empty(t, report.Result.KeyInsights)
	assert.NotNil(t, report.Result.Recommendations)
	assert.NotNil(t, report.Result.Trends)
	assert.Nil(t, report.Result.GeopoliticalEvents)
	assert.Equal(t, models.VariantMarket, report.Variant)
	assert.Equal(t, []string{"report.txt"}, report.SourceFiles)
	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, "fake-model", report.Model)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	require.Len(t, req.Parts, 2)
	assert.Equal(t, "File name: report.txt\nContent: Q3 outlook positive\n", req.Parts[0].Text)
	assert.Contains(t, req.Parts[1].Text, "world-class market analyst")
	assert.Equal(t, "object", req.OutputSchema["type"])
}

func TestAnalyze_MalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"whitespace", "  \n "},
		{"not json", "the market is up"},
		{"missing title", `{"summary":"S"}`},
		{"blank title", `{"title":""}`},
		{"wrong type", `{"title":"T","keyInsights":"one"}`},
		{"array document", `[{"title":"T"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&fakeGenerator{reply: tt.reply})
			report, err := svc.Analyze(context.Background(), Request{Files: []models.FileRecord{textRecord("a.txt", "x")}})
			require.ErrorIs(t, err, ErrMalformedReply)
			assert.Nil(t, report)
		})
	}
}

func TestAnalyze_EmptyProviderResponse(t *testing.T) {
	svc := newService(&fakeGenerator{err: fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)})
	_, err := svc.Analyze(context.Background(), Request{Files: []models.FileRecord{textRecord("a.txt", "x")}})
	require.ErrorIs(t, err, ErrMalformedReply)
}

func TestAnalyze_EnergyVariant(t *testing.T) {
	reply := `{"title":"Energy","geopoliticalEvents":[{"event":"Strait closure","region":"Gulf","impact":"supply","riskLevel":"high"}],"priceTable":[{"product":"Brent","price":"82.1","unit":"USD/bbl","change":"+2%","outlook":"firm"}]}`
	gen := &fakeGenerator{reply: reply}
	svc := newService(gen)

	report, err := svc.Analyze(context.Background(), Request{
		Files:   []models.FileRecord{textRecord("oil.txt", "brent")},
		Variant: models.VariantEnergy,
	})
	require.NoError(t, err)
	require.Len(t, report.Result.GeopoliticalEvents, 1)
	assert.Equal(t, models.RiskHigh, report.Result.GeopoliticalEvents[0].RiskLevel)
	require.Len(t, report.Result.PriceTable, 1)
	assert.Equal(t, "Brent", report.Result.PriceTable[0].Product)

	props := gen.requests[0].OutputSchema["properties"].(map[string]interface{})
	assert.Contains(t, props, "geopoliticalEvents")
	assert.Contains(t, props, "priceTable")
	assert.NotContains(t, props, "customerStrategies")
}

func TestAnalyze_EnergyVariantRejectsUnknownRiskLevel(t *testing.T) {
	reply := `{"title":"Energy","geopoliticalEvents":[{"event":"x","riskLevel":"extreme"}]}`
	svc := newService(&fakeGenerator{reply: reply})

	_, err := svc.Analyze(context.Background(), Request{
		Files:   []models.FileRecord{textRecord("oil.txt", "brent")},
		Variant: models.VariantEnergy,
	})
	require.ErrorIs(t, err, ErrMalformedReply)
}

func TestAnalyze_CustomerVariant(t *testing.T) {
	customers := []models.Customer{
		{ID: "cust_1", Name: "Acme Plastics", Equipment: "extruders", GrossMargin: 18.5},
	}

	t.Run("requires customers", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"title":"T"}`}
		_, err := newService(gen).Analyze(context.Background(), Request{
			Files:   []models.FileRecord{textRecord("a.txt", "x")},
			Variant: models.VariantCustomer,
		})
		require.ErrorIs(t, err, ErrNoCustomersSelected)
		assert.Equal(t, 0, gen.callCount())
	})

	t.Run("profiles precede instructions", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"title":"T","customerStrategies":[{"name":"Acme Plastics","strategy":"lock in resin","opportunity":"price dip"}]}`}
		report, err := newService(gen).Analyze(context.Background(), Request{
			Files:     []models.FileRecord{textRecord("a.txt", "x")},
			Customers: customers,
			Variant:   models.VariantCustomer,
		})
		require.NoError(t, err)
		require.Len(t, report.Result.CustomerStrategies, 1)
		assert.Equal(t, []string{"Acme Plastics"}, report.Customers)

		parts := gen.requests[0].Parts
		require.Len(t, parts, 3)
		assert.Contains(t, parts[1].Text, "Name: Acme Plastics")
		assert.Contains(t, parts[1].Text, "Gross margin: 18.5%")
		assert.Contains(t, parts[2].Text, "customerStrategies")
	})
}

func TestParseReply_StripsCodeFence(t *testing.T) {
	result, err := ParseReply("```json\n{\"title\":\"Fenced\",\"trends\":[\"up\"]}\n```", models.VariantMarket)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", result.Title)
	assert.Equal(t, []string{"up"}, result.Trends)
}

func TestFilePart(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	t.Run("image inline", func(t *testing.T) {
		part := FilePart(models.FileRecord{Name: "chart.png", MediaType: "image/png", Preview: models.PreviewImage, Content: dataURL})
		assert.Equal(t, llm.PartInline, part.Kind)
		assert.Equal(t, "image/png", part.MediaType)
		assert.Equal(t, png, part.Data)
	})

	t.Run("word document inline", func(t *testing.T) {
		mediaType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		content := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString([]byte("PK"))
		part := FilePart(models.FileRecord{Name: "brief.docx", MediaType: mediaType, Preview: models.PreviewUnsupported, Content: content})
		assert.Equal(t, llm.PartInline, part.Kind)
		assert.Equal(t, mediaType, part.MediaType)
	})

	t.Run("pdf without content is a stub", func(t *testing.T) {
		part := FilePart(models.FileRecord{Name: "deck.pdf", MediaType: "application/pdf", Preview: models.PreviewPDF})
		assert.Equal(t, llm.PartText, part.Kind)
		assert.Equal(t, "File name: deck.pdf\nType: application/pdf\n", part.Text)
	})

	t.Run("unsupported is a stub", func(t *testing.T) {
		part := FilePart(models.FileRecord{Name: "data.bin", MediaType: "application/zip", Preview: models.PreviewUnsupported, Content: "data:application/zip;base64,AAAA"})
		assert.Equal(t, llm.PartText, part.Kind)
		assert.True(t, strings.HasPrefix(part.Text, "File name: data.bin\nType: application/zip"))
	})
}

func TestInstructions_NamesLanguage(t *testing.T) {
	assert.Contains(t, Instructions(models.VariantMarket, "Simplified Chinese"), "professional Simplified Chinese")
	assert.Contains(t, Instructions(models.VariantEnergy, ""), "priceTable")
}
