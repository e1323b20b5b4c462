// Package mqtt embeds an MQTT broker that carries the knowledge-base state.
//
// Every mutation publishes the full state as JSON on the state topic
// (kbase/state by default) with the retain flag set, so a client that
// subscribes at any time immediately receives the current state.
//
//	broker, err := mqtt.NewBroker(&mqtt.Config{Port: 1883})
//	if err != nil {
//	    return err
//	}
//	if err := broker.Start(ctx); err != nil {
//	    return err
//	}
//	defer broker.Stop(context.Background(), 5*time.Second)
//
//	pub := mqtt.NewStatePublisher(broker)
//	_ = pub.Publish(ctx, state)
//
// External clients may subscribe to the state topic but cannot publish on it.
package mqtt
