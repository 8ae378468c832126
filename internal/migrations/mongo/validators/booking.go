package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"venue_id",
			"slot_ids",
			"player_name",
			"phone",
			"players_count",
			"payment_type",
			"payment_status",
			"player_id",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"venue_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"slot_ids": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 24,
					"maxLength": 24,
				},
			},

			"player_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"phone": bson.M{
				"bsonType": "string",
				"pattern":  "^\\+[1-9]\\d{7,14}$",
			},

			"players_count": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"payment_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"advance",
					"pay_at_venue",
				},
			},

			"advance_amount": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"rules_acknowledged": bson.M{
				"bsonType": "bool",
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_payment",
					"partially_paid",
					"fully_paid",
				},
			},

			"player_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_payment",
					"booked",
					"completed",
					"cancelled",
				},
			},

			"cancel_reason": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
