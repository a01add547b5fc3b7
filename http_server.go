package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-faker/faker/v4"
	"github.com/jedib0t/go-pretty/v6/table"
)

func startHttpServer() string {
	mux := http.NewServeMux()

	type endpoint struct {
		path    string
		handler http.HandlerFunc
	}
	endpoints := []endpoint{
		{
			path: "/list-db",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.AppendHeader(table.Row{"Key", "Value", "LTT"})
				db.View(func(txn *badger.Txn) error {
					opts := badger.DefaultIteratorOptions
					opts.PrefetchSize = 10
					it := txn.NewIterator(opts)
					defer it.Close()
					for it.Rewind(); it.Valid(); it.Next() {
						item := it.Item()
						k := string(item.Key())
						v, _ := item.ValueCopy(nil)
						if isSecretDBKey(k) {
							v = []byte("********")
						}
						if len(v) > 150 {
							v = []byte(fmt.Sprintf("%s...", v[:150]))
						}
						t.AppendRow(table.Row{k, string(v), item.ExpiresAt()})
					}
					return nil
				})
				t.Render()
			},
		},
		{
			path: "/keys",
			handler: func(w http.ResponseWriter, r *http.Request) {
				keys, err := keyStore.Keys()
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.AppendHeader(table.Row{"Node", "Key Id", "Source", "Nonce", "Counter"})
				for _, k := range keys {
					source := "installed"
					if k.Derived {
						source = "derived"
					}
					t.AppendRow(table.Row{k.Node, k.KeyID, source, fmt.Sprintf("%016x", k.Nonce), k.Counter})
				}
				t.Render()
			},
		},
		{
			path: "/secure-send",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if chargePoint == nil || !chargePoint.IsConnected() {
					http.Error(w, "Charge Point not connected", http.StatusBadRequest)
					return
				}
				q := r.URL.Query()
				keyID := config.SecureData.KeyID
				if v := q.Get("keyId"); v != "" {
					id, err := strconv.ParseUint(v, 10, 16)
					if err != nil {
						http.Error(w, "invalid keyId", http.StatusBadRequest)
						return
					}
					keyID = uint16(id)
				}
				parameter := defaultSecureParameter()
				if v := q.Get("parameter"); v != "" {
					p, err := strconv.ParseUint(v, 10, 16)
					if err != nil {
						http.Error(w, "invalid parameter", http.StatusBadRequest)
						return
					}
					parameter = uint16(p)
				}
				data := q.Get("data")
				if data == "" {
					data = faker.Sentence()
				}

				ctx, cancel := context.WithTimeout(r.Context(), config.SecureData.Timeout)
				defer cancel()
				reply, err := sendSecureData(ctx, parameter, keyID, []byte(data))
				if reply == nil {
					appLogger.WithError(err).Error("Secure data transfer failed")
					http.Error(w, err.Error(), http.StatusBadGateway)
					return
				}

				resp := reply.Response
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.AppendHeader(table.Row{"Field", "Request", "Response"})
				t.AppendRows([]table.Row{
					{"Request Id", reply.Request.RequestID(), resp.RequestID()},
					{"Parameter", reply.Request.Parameter(), resp.Parameter()},
					{"Key Id", reply.Request.KeyID(), resp.KeyID()},
					{"Nonce", fmt.Sprintf("%016x", reply.Request.Nonce()), fmt.Sprintf("%016x", resp.Nonce())},
					{"Counter", reply.Request.Counter(), resp.Counter()},
					{"Ciphertext", shortHex(reply.Request.Ciphertext()), shortHex(resp.Ciphertext())},
					{"Signatures", reply.Request.Signatures().Len(), resp.Signatures().Len()},
					{"Status", "", resp.Status()},
					{"Status Info", "", resp.AdditionalStatusInfo()},
					{"Plaintext", data, string(reply.Plaintext)},
				})
				if err != nil {
					t.AppendFooter(table.Row{"Error", "", err.Error()})
				}
				t.Render()
			},
		},
		{
			path: "/start",
			handler: func(w http.ResponseWriter, r *http.Request) {
				err := bootCharger()
				if err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(err.Error()))
					return
				}
				w.Write([]byte("Charge Point started"))
			},
		},
		{
			path: "/stop",
			handler: func(w http.ResponseWriter, r *http.Request) {
				err := stopCharger()
				if err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(err.Error()))
					return
				}
				w.Write([]byte("Charge Point stopped"))
			},
		},
		{
			path: "/reboot",
			handler: func(w http.ResponseWriter, r *http.Request) {
				err := rebootCharger()
				if err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(err.Error()))
					return
				}
				w.Write([]byte("Charge Point rebooted"))
			},
		},
	}
	endpoints = append(endpoints, endpoint{
		path: "/list",
		handler: func(w http.ResponseWriter, r *http.Request) {
			value := "Available endpoints:\n"
			for _, v := range endpoints {
				value += fmt.Sprintf("\t%s\n", v.path)
			}
			w.Write([]byte(value))
		},
	})

	for _, e := range endpoints {
		mux.HandleFunc(e.path, e.handler)
	}

	port := config.ControlPort
	if port == "" {
		port = "0"
	}

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		appLogger.Fatalln("Error starting control server", err)
	}
	go http.Serve(listener, mux)

	addr := listener.Addr().String()
	appLogger.Infoln("Control Server started on port", addr)
	return addr
}

func isSecretDBKey(key string) bool {
	return key == AuthorizationKey || strings.HasPrefix(key, "securedata/key/")
}

func shortHex(b []byte) string {
	s := hex.EncodeToString(b)
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
