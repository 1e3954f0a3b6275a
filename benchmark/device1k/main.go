package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	iotGrpc "liyu1981.xyz/iot-telemetry-state/pkg/grpc"
	"liyu1981.xyz/iot-telemetry-state/pkg/mqtt"
)

var maxDevices int = 1000
var messagesPerDevice int = 5
var brokerURL string = common.DefaultMQTTBroker
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var prefixes = []string{"Inv", "FlowMeter", "EnergyMeter"}

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

func main() {
	deviceNames := make([]string, maxDevices)
	for i := range maxDevices {
		deviceNames[i] = fmt.Sprintf("%s_%s", prefixes[i%len(prefixes)], uuid.NewString()[:8])
	}
	fmt.Printf("generated %v device names\n", maxDevices)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.Dial(grpcHostPort, grpc.WithInsecure())
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient := iotGrpc.NewDeviceStateServiceClient(conn)

	publisher := mqtt.NewClient(common.MQTTConfig{Broker: brokerURL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.Connect(ctx); err != nil || !publisher.IsConnected() {
		log.Fatal("Failed to connect to broker:", err)
	}
	defer publisher.Disconnect()

	fmt.Printf("broker connected\n")

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range messagesPerDevice {
				publishTelemetry(publisher, deviceNames[i])
				if flipCoin() && flipCoin() {
					publishAlarm(publisher, deviceNames[i])
				}
				time.Sleep(time.Duration(10+rndInt(100)) * time.Millisecond)
			}
			fmt.Printf("\rpublished for device %v", i)
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	fmt.Printf(
		"\rpublished %v messages: used time=%v seconds, throughput=%v message/second\n",
		maxDevices*messagesPerDevice, usedTime.Seconds(), float64(maxDevices*messagesPerDevice)/usedTime.Seconds(),
	)

	// let the service flush its batches
	time.Sleep(time.Second)

	resp, err = http.Get(fmt.Sprintf("http://%s/devices", httpHostPort))
	if err != nil {
		log.Fatal("Failed to list devices over HTTP:", err)
	}
	var devices map[string]any
	err = json.NewDecoder(resp.Body).Decode(&devices)
	resp.Body.Close()
	if err != nil {
		log.Fatal("Failed to decode devices:", err)
	}

	grpcDevices, err := grpcClient.ListDevices(context.Background(), &emptypb.Empty{})
	if err != nil {
		log.Fatal("Failed to list devices over gRPC:", err)
	}

	seen := 0
	for _, name := range deviceNames {
		if _, ok := devices[name]; ok {
			seen++
		}
	}
	fmt.Printf("devices tracked: http=%v grpc=%v, of ours=%v/%v\n",
		len(devices), len(grpcDevices.GetFields()), seen, maxDevices)
}

func rndInt(n int32) int32 {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(n)
}

func flipCoin() bool {
	return rndInt(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func publishTelemetry(publisher *mqtt.Client, deviceName string) {
	data := map[string]any{
		"pump_power":                      map[string]any{"value": rndFloat64(0.0, 15.0, 2)},
		"frequency":                       rndFloat64(45.0, 55.0, 1),
		"water_pumped_flow_rate_per_hour": rndFloat64(0.0, 40.0, 2),
		"total_active_power":              rndFloat64(0.0, 100.0, 2),
		"running":                         flipCoin(),
	}
	payload, _ := json.Marshal(map[string]any{
		"DeviceName": deviceName,
		"timestamp":  time.Now().UnixMilli(),
		"data":       data,
	})
	if err := publisher.Publish("device/"+deviceName+"/telemetry", payload); err != nil {
		fmt.Printf("\nerror: %v\n", err)
	}
}

func publishAlarm(publisher *mqtt.Client, deviceName string) {
	alert := map[string]any{
		"title":    "Over temperature",
		"type":     "Temperature",
		"severity": 1 + rndInt(5),
	}
	topic := "device/" + deviceName + "/alarm"
	if flipCoin() {
		alert = map[string]any{"title": "Inverter protection status", "type": "Inverter protection status"}
		topic = "device/" + deviceName + "/events"
	}
	payload, _ := json.Marshal(map[string]any{
		"DeviceName": deviceName,
		"data":       []any{alert},
	})
	if err := publisher.Publish(topic, payload); err != nil {
		fmt.Printf("\nerror: %v\n", err)
	}
}
