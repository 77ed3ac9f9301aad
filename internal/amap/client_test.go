package amap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathGeocode, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "JSON", r.URL.Query().Get("output"))
		assert.Equal(t, "春熙路", r.URL.Query().Get("address"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"1","info":"OK","infocode":"10000","count":"1"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Key: "test-key"})

	var out struct {
		Count FlexFloat `json:"count"`
	}
	err := client.Get(context.Background(), PathGeocode, url.Values{"address": {"春熙路"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.Count.Valid)
	assert.Equal(t, 1.0, out.Count.Value)
}

func TestClientGetStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","info":"INVALID_USER_KEY","infocode":"10001"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Key: "bad"})

	err := client.Get(context.Background(), PathGeocode, nil, nil)
	require.Error(t, err)

	var upErr *ErrUpstream
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, "INVALID_USER_KEY", upErr.Info)
	assert.Equal(t, "v3/geocode/geo", upErr.Endpoint)
}

func TestClientGetHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Key: "k"})

	err := client.Get(context.Background(), PathRegeo, nil, nil)
	var upErr *ErrUpstream
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.StatusCode)
	assert.Contains(t, upErr.Error(), "HTTP 502")
}

func TestClientGetMissingKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})

	err := client.Get(context.Background(), PathGeocode, nil, nil)
	var upErr *ErrUpstream
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, upErr.Reason, "missing api key")
}

func TestClientGetContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Key: "k"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Get(ctx, PathGeocode, nil, nil)
	assert.Error(t, err)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
		E FlexString `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":"成都市","b":[],"c":123,"d":null,"e":["x","y"]}`), &v)
	require.NoError(t, err)

	assert.Equal(t, FlexString("成都市"), v.A)
	assert.Equal(t, FlexString(""), v.B)
	assert.Equal(t, FlexString("123"), v.C)
	assert.Equal(t, FlexString(""), v.D)
	assert.Equal(t, FlexString("x;y"), v.E)
}

func TestFlexFloat(t *testing.T) {
	var v struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
		C FlexFloat `json:"c"`
		D FlexFloat `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"1250","b":3.5,"c":[],"d":""}`), &v)
	require.NoError(t, err)

	assert.Equal(t, FlexFloat{Value: 1250, Valid: true}, v.A)
	assert.Equal(t, FlexFloat{Value: 3.5, Valid: true}, v.B)
	assert.False(t, v.C.Valid)
	assert.Nil(t, v.D.Ptr())
	require.NotNil(t, v.A.Ptr())
	assert.Equal(t, 1250.0, *v.A.Ptr())
}

func TestFlexCity(t *testing.T) {
	var v struct {
		City FlexCity `json:"city"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"city":[]}`), &v))
	assert.True(t, v.City.IsArray)
	assert.Equal(t, "", v.City.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"city":"成都市"}`), &v))
	assert.False(t, v.City.IsArray)
	assert.Equal(t, "成都市", v.City.Value)
}
