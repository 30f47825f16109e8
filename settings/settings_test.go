package settings

import "testing"

func TestRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load empty store: %v", err)
	}
	if want := Defaults(); got != want {
		t.Errorf("empty store:\n  got: %+v\n want: %+v", got, want)
	}

	cfg := Settings{
		Brightness: 7,
		Timezone:   "America/New_York",
		Hour24:     true,
		FlashColon: false,
		WifiSSID:   "shop",
	}
	if err := s.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != cfg {
		t.Errorf("after save:\n  got: %+v\n want: %+v", got, cfg)
	}

	cfg.Brightness = 2
	cfg.WifiSSID = ""
	if err := s.Save(cfg); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = s.Load()
	if err != nil {
		t.Fatalf("load after second save: %v", err)
	}
	if got != cfg {
		t.Errorf("after second save:\n  got: %+v\n want: %+v", got, cfg)
	}
}

func TestDamagedValues(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	for _, kv := range [][2]string{
		{"brightness", "banana"},
		{"hour_24", "sometimes"},
		{"flash_colon", "12"},
		{"timezone", ""},
		{"pet", "dog"},
	} {
		if _, err := s.db.Exec("insert into settings values(?, ?)", kv[0], kv[1]); err != nil {
			t.Fatalf("insert %v: %v", kv[0], err)
		}
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := Defaults(); got != want {
		t.Errorf("damaged rows should not override defaults:\n  got: %+v\n want: %+v", got, want)
	}

	if _, err := s.db.Exec("update settings set value = '12' where key = 'brightness'"); err != nil {
		t.Fatalf("update brightness: %v", err)
	}
	got, err = s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := Defaults()
	want.Brightness = 12
	if got != want {
		t.Errorf("valid row should load:\n  got: %+v\n want: %+v", got, want)
	}
}

func TestOutOfRangeBrightness(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	testData := []struct {
		value string
		want  int
	}{
		{value: "0", want: 0},
		{value: "15", want: 15},
		{value: "16", want: 0},
		{value: "-1", want: 0},
	}
	for i, test := range testData {
		if _, err := s.db.Exec("insert into settings values('brightness', ?) on conflict(key) do update set value = excluded.value", test.value); err != nil {
			t.Fatalf("test %d: insert: %v", i, err)
		}
		got, err := s.Load()
		if err != nil {
			t.Fatalf("test %d: load: %v", i, err)
		}
		if got.Brightness != test.want {
			t.Errorf("test %d: brightness:\n  got: %v\n want: %v", i, got.Brightness, test.want)
		}
	}
}
