// Separate package is workaround to import cycles.
package tele_config

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	Transport         string `hcl:"transport"` // gomqtt (default) or paho
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttClientID      string `hcl:"mqtt_client_id"`
	MqttUsername      string `hcl:"mqtt_username"` // ThingsBoard access token
	MqttPassword      string `hcl:"mqtt_password"` // secret
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	TlsCaFile         string `hcl:"tls_ca_file"`
	Format            string `hcl:"format"` // gateway (default) or record
	Topic             string `hcl:"topic"`  // {device_id} is replaced
	LogDebug          bool   `hcl:"log_debug"`

	PersistPath string `hcl:"-"`
}
