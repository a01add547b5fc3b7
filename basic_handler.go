package main

import (
	"strconv"

	"github.com/go-faker/faker/v4"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"
)

type ChargePointHandler struct{}

func (handler *ChargePointHandler) OnChangeAvailability(request *core.ChangeAvailabilityRequest) (confirmation *core.ChangeAvailabilityConfirmation, err error) {
	appLogger.Println("OnChangeAvailability", request.ConnectorId, request.Type)
	return core.NewChangeAvailabilityConfirmation(core.AvailabilityStatusAccepted), nil
}

func (handler *ChargePointHandler) OnClearCache(request *core.ClearCacheRequest) (confirmation *core.ClearCacheConfirmation, err error) {
	appLogger.Println("OnClearCache")
	return core.NewClearCacheConfirmation(core.ClearCacheStatusAccepted), nil
}

func (handler *ChargePointHandler) OnDataTransfer(request *core.DataTransferRequest) (confirmation *core.DataTransferConfirmation, err error) {
	if secureHandler != nil && secureHandler.Matches(request) {
		return secureHandler.HandleDataTransfer(config.SecureData.Peer, request)
	}
	appLogger.Println("OnDataTransfer", request.VendorId, request.MessageId)
	return core.NewDataTransferConfirmation(core.DataTransferStatusUnknownVendorId), nil
}

func (handler *ChargePointHandler) OnReset(request *core.ResetRequest) (confirmation *core.ResetConfirmation, err error) {
	appLogger.Println("OnReset", request.Type)
	return core.NewResetConfirmation(core.ResetStatusAccepted), nil
}

// The node does not charge; transaction control is refused.

func (handler *ChargePointHandler) OnRemoteStartTransaction(request *core.RemoteStartTransactionRequest) (confirmation *core.RemoteStartTransactionConfirmation, err error) {
	appLogger.WithField("idTag", request.IdTag).Println("OnRemoteStartTransaction rejected")
	return core.NewRemoteStartTransactionConfirmation(types.RemoteStartStopStatusRejected), nil
}

func (handler *ChargePointHandler) OnRemoteStopTransaction(request *core.RemoteStopTransactionRequest) (confirmation *core.RemoteStopTransactionConfirmation, err error) {
	appLogger.WithField("transactionId", request.TransactionId).Println("OnRemoteStopTransaction rejected")
	return core.NewRemoteStopTransactionConfirmation(types.RemoteStartStopStatusRejected), nil
}

func (handler *ChargePointHandler) OnUnlockConnector(request *core.UnlockConnectorRequest) (confirmation *core.UnlockConnectorConfirmation, err error) {
	appLogger.Println("OnUnlockConnector", request.ConnectorId)
	return core.NewUnlockConnectorConfirmation(core.UnlockStatusNotSupported), nil
}

func bootNotification() error {
	result, err := chargePoint.BootNotification(
		faker.LastName(), faker.FirstName(),
		func(request *core.BootNotificationRequest) {
			request.ChargePointSerialNumber = faker.CCNumber()
			request.MeterSerialNumber = faker.CCNumber()
			request.FirmwareVersion = appVersion
		})
	if err != nil {
		return err
	}
	if result.Status != core.RegistrationStatusAccepted {
		appLogger.Println("BootNotification rejected", result.Status)
	}
	if result.Interval <= 0 {
		return nil
	}
	return SetKeyValue(HeartbeatIntervalKey, strconv.Itoa(result.Interval))
}
