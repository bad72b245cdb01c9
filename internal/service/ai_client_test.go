package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nest-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAIServer(t *testing.T, handler http.HandlerFunc) *AIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAIClient(srv.URL, 2*time.Second, zap.NewNop())
}

func TestAIClient_RecommendShelters(t *testing.T) {
	var got aiRecommendRequest
	client := newAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AIRecommendPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations":[
			{"resource_id":"2","resource_name":"Northside","score":0.91,"explanation":{"location_score":0.8}},
			{"resource_id":"42","resource_name":"ghost","score":0.5},
			{"resource_id":"1","resource_name":"Harbor House","score":0.72}
		]}`))
	})

	age := 70
	profile := &domain.HomelessProfile{ProfileID: 5, Name: "Ana", Age: &age, Skills: "cooking, cleaning", GeoLat: 1.5, GeoLng: 2.5}
	shelters := []*domain.Shelter{
		{ShelterID: 1, Name: "Harbor House", Capacity: 10, AvailableBeds: 4, Amenities: "meals,showers"},
		{ShelterID: 2, Name: "Northside", Capacity: 5, AvailableBeds: 1},
	}

	recs, err := client.RecommendShelters(context.Background(), profile, shelters, 3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].ShelterID)
	assert.Equal(t, 1, recs[0].AvailableBeds)
	assert.InDelta(t, 0.8, recs[0].Explanation["location_score"], 1e-9)
	assert.Equal(t, "Harbor House", recs[1].Name)

	assert.Equal(t, "5", got.Individual.ID)
	assert.Equal(t, []string{"cooking", "cleaning"}, got.Individual.Skills)
	assert.Equal(t, "high", got.Individual.Priority)
	require.NotNil(t, got.Individual.Location)
	assert.Equal(t, [2]float64{1.5, 2.5}, *got.Individual.Location)
	assert.Equal(t, 3, got.TopK)
	require.Len(t, got.Shelters, 2)
	assert.Equal(t, 6, got.Shelters[0].Occupied)
	assert.Nil(t, got.Shelters[0].Location)
	assert.Equal(t, []string{"meals", "showers"}, got.Shelters[0].Amenities)
}

func TestAIClient_UpstreamErrorIsUnavailable(t *testing.T) {
	client := newAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := client.RecommendShelters(context.Background(), &domain.HomelessProfile{ProfileID: 1}, []*domain.Shelter{{ShelterID: 1}}, 5)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestAIClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewAIClient(url, time.Second, zap.NewNop())
	_, err := client.RecommendShelters(context.Background(), &domain.HomelessProfile{ProfileID: 1}, nil, 5)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestAIPriority(t *testing.T) {
	age := func(v int) *int { return &v }
	cases := []struct {
		name string
		p    domain.HomelessProfile
		want string
	}{
		{"explicit critical", domain.HomelessProfile{Priority: domain.PriorityCritical}, "critical"},
		{"explicit low", domain.HomelessProfile{Priority: domain.PriorityLow}, "low"},
		{"critical health", domain.HomelessProfile{Priority: domain.PriorityMedium, HealthStatus: "Critical condition"}, "critical"},
		{"minor", domain.HomelessProfile{Priority: domain.PriorityMedium, Age: age(16)}, "high"},
		{"chronic", domain.HomelessProfile{Priority: domain.PriorityMedium, Age: age(40), HealthStatus: "chronic asthma"}, "high"},
		{"default", domain.HomelessProfile{Priority: domain.PriorityMedium, Age: age(40)}, "medium"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, aiPriority(&tc.p))
		})
	}
}
