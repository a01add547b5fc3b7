package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
)

func (handler *ChargePointHandler) OnChangeConfiguration(request *core.ChangeConfigurationRequest) (confirmation *core.ChangeConfigurationConfirmation, err error) {
	key := request.Key
	value := request.Value
	appLogger.Println("OnChangeConfiguration", key)
	if _, ok := supportedConfigurationKeys[key]; !ok {
		return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusNotSupported), nil
	}
	if _, ok := readOnlyConfigurationKeys[key]; ok {
		return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
	}

	requiresReboot := false

	switch key {
	case SecureDataTransferKey:
		if err := applySecureDataKey(keyStore, config.SecureData.Peer, value); err != nil {
			appLogger.WithError(err).WithField("key", key).Error("Error changing secure data key")
			return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
		}
		return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusAccepted), nil

	case SecureDataTransferParameter:
		if _, err := strconv.ParseUint(value, 10, 16); err != nil {
			return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
		}

	case "HeartbeatInterval":
		if _, err := strconv.Atoi(value); err != nil {
			return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
		}
		key = HeartbeatIntervalKey

	case SecurityProfileKey:
		v, _ := strconv.Atoi(value)
		if err := db.View(func(txn *badger.Txn) error {
			if v < MustGetIntKeyTX(txn, SecurityProfileKey) {
				return errors.New("cannot set a lower security profile")
			}
			if v > BasicSecurityProfile {
				return fmt.Errorf("security profile %d not supported", v)
			}
			if v == BasicSecurityProfile {
				password, err := GetKeyValueTX(txn, AuthorizationKey)
				if err != nil {
					return err
				}
				if password == "" {
					return errors.New("not all security profile keys are set")
				}
				requiresReboot = true
			}
			return nil
		}); err != nil {
			appLogger.WithError(err).
				WithField("key", key).
				WithField("value", value).
				Error("Error updating configuration")
			return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
		}
	}

	if err := SetKeyValue(key, value); err != nil {
		appLogger.WithError(err).
			WithField("key", key).
			Error("Error updating configuration")
		return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRejected), nil
	}

	if requiresReboot {
		appLogger.Info("Security profile change requires reboot")

		go func() {
			time.Sleep(1500 * time.Millisecond)
			if err := rebootCharger(); err != nil {
				appLogger.WithError(err).Error("Error rebooting charger")
			}
		}()
		return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusRebootRequired), nil
	}

	return core.NewChangeConfigurationConfirmation(core.ConfigurationStatusAccepted), nil
}

func (handler *ChargePointHandler) OnGetConfiguration(request *core.GetConfigurationRequest) (confirmation *core.GetConfigurationConfirmation, err error) {
	keys := request.Key
	appLogger.Println("OnGetConfiguration", keys)
	if len(keys) == 0 {
		for k := range supportedConfigurationKeys {
			keys = append(keys, k)
		}
	}

	unknownKeys := make([]string, 0)
	cKeys := []core.ConfigurationKey{}
	for _, key := range keys {
		_, supported := supportedConfigurationKeys[key]
		_, hidden := writeOnlyConfigurationKeys[key]
		if !supported || hidden {
			if len(request.Key) > 0 {
				unknownKeys = append(unknownKeys, key)
			}
			continue
		}
		value, err := configurationValue(key)
		if err != nil {
			appLogger.WithError(err).Error("Error getting configuration")
			return nil, err
		}
		_, readonly := readOnlyConfigurationKeys[key]
		cKeys = append(cKeys, core.ConfigurationKey{
			Key:      key,
			Readonly: readonly,
			Value:    &value,
		})
	}
	return &core.GetConfigurationConfirmation{UnknownKey: unknownKeys, ConfigurationKey: cKeys}, nil
}

func configurationValue(key string) (string, error) {
	switch key {
	case SecureDataTransferKeyIds:
		return installedKeyIDs()
	case "SupportedFeatureProfiles":
		return core.ProfileName, nil
	case "HeartbeatInterval":
		return GetKeyValue(HeartbeatIntervalKey)
	case SecureDataTransferParameter:
		return strconv.Itoa(int(defaultSecureParameter())), nil
	}
	return GetKeyValue(key)
}
