package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"seedfarm/native/farm"
	"seedfarm/native/farm/farmstore"
	"seedfarm/storage"
)

type testHarness struct {
	server *httptest.Server
	clock  *clockwork.FakeClock
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(100, 0).UTC())
	engine := farm.NewEngine()
	engine.SetState(farmstore.NewStore(storage.NewMemDB()))
	engine.SetClock(clock)

	server := httptest.NewServer(NewServer(engine, nil).Router())
	t.Cleanup(server.Close)
	return &testHarness{server: server, clock: clock}
}

func (h *testHarness) call(t *testing.T, method string, params interface{}) *RPCResponse {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		body["params"] = []interface{}{params}
	}
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(h.server.URL, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := &RPCResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return out
}

func (h *testHarness) mustCall(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	resp := h.call(t, method, params)
	require.Nil(t, resp.Error, "method %s: %+v", method, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	return raw
}

func (h *testHarness) createFarm(t *testing.T) string {
	t.Helper()
	raw := h.mustCall(t, "farm_create", map[string]interface{}{
		"seedId":           "swap@0",
		"rewardToken":      "reward.token",
		"rewardPerSession": "50",
		"sessionInterval":  60,
		"funding":          "2000",
		"minDeposit":       "1",
	})
	var result farmCreateResult
	require.NoError(t, json.Unmarshal(raw, &result))
	return result.FarmID
}

func TestFarmLifecycleOverRPC(t *testing.T) {
	h := newTestHarness(t)

	id := h.createFarm(t)
	require.Equal(t, "swap@0#0", id)

	h.mustCall(t, "farm_depositReward", map[string]interface{}{
		"farmId": id,
		"amount": "5000",
	})
	h.mustCall(t, "farm_registerFarmer", map[string]interface{}{
		"owner":   "alice",
		"funding": "1000",
	})
	h.mustCall(t, "farm_depositStake", map[string]interface{}{
		"owner":  "alice",
		"seedId": "swap@0",
		"amount": "10",
	})

	h.clock.Advance(60 * time.Second)

	var unclaimed amountResult
	raw := h.mustCall(t, "farm_viewUnclaimed", map[string]interface{}{
		"owner":  "alice",
		"farmId": id,
	})
	require.NoError(t, json.Unmarshal(raw, &unclaimed))
	require.Equal(t, "50", unclaimed.Amount)

	h.mustCall(t, "farm_claimByFarm", map[string]interface{}{
		"owner":  "alice",
		"farmId": id,
	})

	raw = h.mustCall(t, "farm_farmerRewards", map[string]interface{}{"owner": "alice"})
	var rewards map[string]string
	require.NoError(t, json.Unmarshal(raw, &rewards))
	require.Equal(t, "50", rewards["reward.token"])

	raw = h.mustCall(t, "farm_getFarm", map[string]interface{}{"farmId": id})
	var view farmJSON
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Equal(t, "Running", view.Status)
	require.Equal(t, "4950", view.Undistributed)
	require.Equal(t, uint64(1), view.LastRound)

	var withdrawal transferResult
	raw = h.mustCall(t, "farm_withdrawReward", map[string]interface{}{
		"owner": "alice",
		"token": "reward.token",
	})
	require.NoError(t, json.Unmarshal(raw, &withdrawal))
	require.NotEmpty(t, withdrawal.RequestID)

	h.mustCall(t, "farm_resolveTransfer", map[string]interface{}{
		"requestId": withdrawal.RequestID,
		"success":   true,
	})
}

func TestRPCValidationErrors(t *testing.T) {
	h := newTestHarness(t)

	resp := h.call(t, "farm_depositReward", map[string]interface{}{
		"farmId": "missing#0",
		"amount": "100",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeFarmingNotFound, resp.Error.Code)

	resp = h.call(t, "farm_depositReward", map[string]interface{}{
		"farmId": "missing#0",
		"amount": "abc",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeFarmingInvalidParams, resp.Error.Code)

	resp = h.call(t, "farm_unknown", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	resp = h.call(t, "farm_create", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeFarmingInvalidParams, resp.Error.Code)
}

func TestRPCSeedViews(t *testing.T) {
	h := newTestHarness(t)
	id := h.createFarm(t)

	raw := h.mustCall(t, "farm_getSeed", map[string]interface{}{"seedId": "swap@0"})
	var seed seedJSON
	require.NoError(t, json.Unmarshal(raw, &seed))
	require.Equal(t, []string{id}, seed.Farms)
	require.Equal(t, "0", seed.TotalStaked)

	raw = h.mustCall(t, "farm_listFarms", map[string]interface{}{"seedId": "swap@0"})
	var farms []farmJSON
	require.NoError(t, json.Unmarshal(raw, &farms))
	require.Len(t, farms, 1)
	require.Equal(t, id, farms[0].FarmID)
	require.Equal(t, "Created", farms[0].Status)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)
	resp, err := http.Get(fmt.Sprintf("%s/healthz", h.server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
