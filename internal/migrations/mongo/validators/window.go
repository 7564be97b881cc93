package validators

import "go.mongodb.org/mongo-driver/bson"

var WindowValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"provider_id",
			"date",
			"start_instant",
			"end_instant",
			"is_booked",
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
			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},
			"start_instant": bson.M{"bsonType": "date"},
			"end_instant":   bson.M{"bsonType": "date"},
			"is_booked":     bson.M{"bsonType": "bool"},
			"is_recurring":  bson.M{"bsonType": "bool"},
			"created_at":    bson.M{"bsonType": "date"},
			"updated_at":    bson.M{"bsonType": "date"},
		},
	},
}
