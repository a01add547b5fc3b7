package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	ocpp16 "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ws"
	log "github.com/sirupsen/logrus"

	"secure_ocpp_cp/internal/keystore"
	"secure_ocpp_cp/internal/transport"
)

const (
	appVersion = "4.1.0"
)

var (
	config *Config

	db          *badger.DB
	keyStore    *keystore.Badger
	chargePoint ocpp16.ChargePoint
	handler     *ChargePointHandler
	stopC       chan struct{}

	secureClient  *transport.Client
	secureHandler *transport.Handler

	ll        = log.StandardLogger()
	appLogger = ll.WithContext(context.Background())
)

func init() {
	time.Local = time.UTC
}

func main() {
	// listen to quit signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var configFile string
	var showVersion bool
	var cpID, csURL, controlPort, dbPath string
	flag.StringVar(&configFile, "config", "", "load configuration from `FILE`")
	flag.StringVar(&cpID, "cp", "", "charge point id")
	flag.StringVar(&csURL, "cs", "", "central system url")
	flag.StringVar(&controlPort, "control-port", "", "control server port (default: random)")
	flag.StringVar(&dbPath, "db", "", "db path (default: db)")
	flag.BoolVar(&showVersion, "version", false, "show version")
	flag.Parse()

	if showVersion {
		fmt.Println("Current App Version:", appVersion)
		os.Exit(0)
	}

	cfg, err := NewConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cp":
			cfg.ChargePointID = cpID
		case "cs":
			cfg.CentralSystem = csURL
		case "control-port":
			cfg.ControlPort = controlPort
		case "db":
			cfg.DBPath = dbPath
		}
	})
	config = cfg

	if config.ChargePointID == "" {
		println("missing charge point id")
		flag.Usage()
		os.Exit(1)
	}
	if config.CentralSystem == "" {
		println("missing central system url")
		flag.Usage()
		os.Exit(1)
	}

	ll.SetLevel(config.LogLevel)
	appLogger = appLogger.WithField("cp", config.ChargePointID)

	nodeDBPath := filepath.Join(config.DBPath, config.ChargePointID)
	badgerDB, err := badger.Open(badger.DefaultOptions(nodeDBPath).WithLogger(ll))
	if err != nil {
		log.Fatal(err)
	}
	defer badgerDB.Close()
	db = badgerDB

	// store setup configuration
	if err := db.Update(func(txn *badger.Txn) error {
		txn.Set([]byte("started_at"), []byte(time.Now().Format(time.RFC3339)))
		txn.Set([]byte("charge_point_id"), []byte(config.ChargePointID))
		txn.Set([]byte("cs_url"), []byte(config.CentralSystem))
		txn.Set([]byte("cp_version"), []byte(appVersion))
		txn.Set([]byte("db_path"), []byte(nodeDBPath))
		SetIfNotExistsTX(txn, SecurityProfileKey, fmt.Sprintf("%d", NoSecurityProfile))
		SetIfNotExistsTX(txn, HeartbeatIntervalKey, "300")
		return nil
	}); err != nil {
		log.Fatal(err)
	}

	keyStore = keystore.NewBadger(db, []byte(config.SecureData.MasterSecret), appLogger)
	if err := setUpSecureData(); err != nil {
		appLogger.WithError(err).Fatalln("setUpSecureData")
	}

	httpPort := startHttpServer()
	appLogger = appLogger.WithField("control_port", httpPort)

	if err := bootCharger(); err != nil {
		appLogger.WithError(err).Fatalln("startChargePoint")
	}

	<-signals
	go func() {
		<-signals
		fmt.Println("Forcefully shutting down...")
		closeStopC()
		markStopped()
		os.Exit(2)
	}()

	fmt.Println("Gracefully shutting down...")
	markStopped()
	closeStopC()

	if chargePoint.IsConnected() {
		chargePoint.Stop()
	}
}

func markStopped() {
	db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("stopped_at"), []byte(time.Now().Format(time.RFC3339)))
	})
}

func closeStopC() {
	defer func() {
		recover()
	}()
	close(stopC)
}

func setUpSecurityOnWsClient(client *ws.Client) error {
	return db.View(func(txn *badger.Txn) error {
		profile := MustGetIntKeyTX(txn, SecurityProfileKey)
		switch profile {
		case NoSecurityProfile:
			return nil
		case BasicSecurityProfile:
			password, err := GetKeyValueTX(txn, AuthorizationKey)
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is not set for this profile")
			}
			client.SetBasicAuth(config.ChargePointID, password)
			return nil
		default:
			return fmt.Errorf("security profile: %d not supported", profile)
		}
	})
}

func startChargePoint(wsClient *ws.Client) error {
	chargePoint = ocpp16.NewChargePoint(config.ChargePointID, nil, wsClient)

	handler = &ChargePointHandler{}
	chargePoint.SetCoreHandler(handler)
	secureClient = newSecureClient(chargePoint)

	// Connects to central system
	if err := chargePoint.Start(config.CentralSystem); err != nil {
		return err
	}

	if err := bootNotification(); err != nil {
		return err
	}

	stopC = make(chan struct{})

	go func() {
		for {
			interval := MustGetIntKey(HeartbeatIntervalKey)
			if interval <= 0 {
				interval = 300
			}
			select {
			case <-stopC:
				appLogger.Debugln("stop signal received in heartbeat")
				return
			case <-time.After(time.Duration(interval) * time.Second):
			}

			if _, err := chargePoint.Heartbeat(); err != nil {
				appLogger.WithError(err).Debugln("Heartbeat error")
				continue
			}
			appLogger.Debugln("Heartbeat sent to central system")
		}
	}()

	return nil
}

func bootCharger() error {
	if chargePoint != nil && chargePoint.IsConnected() {
		return errors.New("charge point already connected")
	}
	ws.SetLogger(ll)
	wsClient := ws.NewClient()
	if err := setUpSecurityOnWsClient(wsClient); err != nil {
		return err
	}
	return startChargePoint(wsClient)
}

func stopCharger() error {
	if chargePoint == nil || !chargePoint.IsConnected() {
		return errors.New("charge point not connected")
	}
	closeStopC()
	chargePoint.Stop()
	return nil
}

func rebootCharger() error {
	if chargePoint != nil && chargePoint.IsConnected() {
		closeStopC()
		chargePoint.Stop()
	}
	appLogger.Infoln("Charge Point stopped")
	return bootCharger()
}
