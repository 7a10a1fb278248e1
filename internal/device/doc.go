// Package device provides the device inventory behind the 3D viewer.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                         Device Store                         │
//	│                                                              │
//	│  ┌──────────────┐    ┌──────────────────┐    ┌────────────┐  │
//	│  │    Store     │───▶│   Repository     │    │ Validation │  │
//	│  │  (store.go)  │    │ (repository.go)  │    │            │  │
//	│  │ • CRUD       │    │ • SQLite queries │    │ • Fields   │  │
//	│  │ • Subscribe  │    └──────────────────┘    │ • Patch    │  │
//	│  │ • Replay     │                            └────────────┘  │
//	│  └──────┬───────┘                                            │
//	│         │ ChangePublisher                                    │
//	│  ┌──────▼───────┐                                            │
//	│  │   MQTTFeed   │◀──── graylogic/viewer/devices/changed ────▶│
//	│  │  (feed.go)   │                                            │
//	│  └──────────────┘                                            │
//	└──────────────────────────────────────────────────────────────┘
//
// # Usage
//
//	store := device.NewStore(device.NewSQLiteRepository(db.DB))
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//
//	unsubscribe := store.Subscribe(func(devices []device.Device) {
//	    // re-lay out the scene
//	})
//	defer unsubscribe()
//
//	fields := device.DefaultFields()
//	fields.Name = "Boiler room sensor"
//	dev, err := store.Create(ctx, fields)
//
// Form payloads (Fields) carry no ID; IDs are generated on create and can
// never be overwritten by an edit.
package device
