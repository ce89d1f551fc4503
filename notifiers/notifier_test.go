package notifiers

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nzai/vpa/strategies"
)

func TestParse(t *testing.T) {
	cases := []struct {
		options Options
		wantErr bool
	}{
		{options: Options{}},
		{options: Options{Type: "log"}},
		{options: Options{Type: " LOG "}},
		{options: Options{Type: "nsq", Broker: "127.0.0.1:4150", Topic: "decisions"}},
		{options: Options{Type: "wechat"}, wantErr: true},
		{options: Options{Type: "nsq", Broker: "127.0.0.1:4150", Topic: "decisions", TLSCert: "missing.crt", TLSKey: "missing.key"}, wantErr: true},
	}

	for _, _case := range cases {
		notifier, err := Parse(_case.options)
		if (err != nil) != _case.wantErr {
			t.Errorf("Parse(%+v) error = %v, wantErr %v", _case.options, err, _case.wantErr)
			continue
		}

		if notifier != nil {
			notifier.Close()
		}
	}
}

func TestDecisionEvent(t *testing.T) {
	decision := strategies.NewDecision(time.Date(2018, 1, 2, 10, 0, 0, 0, time.UTC), 0.5)
	decision.Action = strategies.ActionSell
	decision.Indicators["peak"] = 0.6

	event := NewDecisionEvent("BTC-ETH", "trailing_stop", decision)
	if event.Action != "sell" {
		t.Errorf("event action = %s, want sell", event.Action)
	}

	buffer, err := sonic.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event error = %v", err)
	}

	var got map[string]interface{}
	err = sonic.Unmarshal(buffer, &got)
	if err != nil {
		t.Fatalf("unmarshal event error = %v", err)
	}

	if got["market"] != "BTC-ETH" || got["strategy"] != "trailing_stop" {
		t.Errorf("event json = %s", buffer)
	}

	inner, ok := got["decision"].(map[string]interface{})
	if !ok || inner["do"] != float64(-1) {
		t.Errorf("event decision json = %s", buffer)
	}

	err = NewLog().Notify(event)
	if err != nil {
		t.Errorf("Log.Notify() error = %v", err)
	}
}
