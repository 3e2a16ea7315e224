package ticket

// Sample is a problem/solution pair used to bootstrap an empty knowledge base.
type Sample struct {
	Problem  string
	Solution string
}

// Samples are the starter tickets loaded when SEED_TICKETS is enabled.
func Samples() []Sample {
	return []Sample{
		{"Can't login to the app", "Reset your password by clicking 'Forgot Password' and check your email"},
		{"App crashes when opening", "Update to the latest version from your app store"},
		{"Slow performance and loading", "Clear your app cache, restart the device, and ensure stable internet connection"},
		{"Cannot receive notifications", "Check notification settings in your device settings and app permissions"},
		{"Payment failed", "Verify your payment method, check bank account balance, and try a different card if needed"},
	}
}
