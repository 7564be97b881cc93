package validators

import (
	"slotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"client_id",
			"provider_id",
			"availability_window_id",
			"start_instant",
			"end_instant",
			"price_snapshot_cents",
			"status",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},
			"client_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"availability_window_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},
			"start_instant": bson.M{"bsonType": "date"},
			"end_instant":   bson.M{"bsonType": "date"},
			"hourly_rate_cents": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},
			"price_snapshot_cents": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},
			"status": bson.M{
				"bsonType": "string",
				"enum":     statusValues(),
			},
			"client_note": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},
			"created_at":    bson.M{"bsonType": "date"},
			"updated_at":    bson.M{"bsonType": "date"},
			"confirmed_at":  bson.M{"bsonType": "date"},
			"completed_at":  bson.M{"bsonType": "date"},
			"terminated_at": bson.M{"bsonType": "date"},
		},
	},
}

func statusValues() []string {
	values := make([]string, 0, len(model.AllReservationStatuses))
	for _, s := range model.AllReservationStatuses {
		values = append(values, string(s))
	}
	return values
}
