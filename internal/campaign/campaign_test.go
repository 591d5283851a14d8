package campaign

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		c    Campaign
		want Type
	}{
		{"explicit type wins", Campaign{Subject: "Welcome", CampaignType: TypeNewsletter}, TypeNewsletter},
		{"welcome in subject", Campaign{Subject: "Welcome to the club"}, TypeWelcome},
		{"seasonal", Campaign{Subject: "Our Seasonal picks"}, TypeSeasonal},
		{"educational in content", Campaign{Content: "<p>Learn how to bake</p>"}, TypeEducational},
		{"promotional", Campaign{Subject: "A limited offer"}, TypePromotional},
		{"newsletter", Campaign{Subject: "Monthly update"}, TypeNewsletter},
		{"first rule wins", Campaign{Subject: "Welcome offer"}, TypeWelcome},
		{"fallback", Campaign{Subject: "Hello"}, TypeInformational},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.c); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCampaignValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Campaign
		wantErr bool
	}{
		{"valid", Campaign{ID: "a", SendDay: 1}, false},
		{"valid with type", Campaign{ID: "a", SendDay: 3, Delay: 2, CampaignType: TypeSeasonal}, false},
		{"empty id", Campaign{SendDay: 1}, true},
		{"zero send day", Campaign{ID: "a"}, true},
		{"negative delay", Campaign{ID: "a", SendDay: 1, Delay: -1}, true},
		{"unknown type", Campaign{ID: "a", SendDay: 1, CampaignType: "spam"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
